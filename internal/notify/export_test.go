// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package notify

import "context"

// Post exposes the single-URL delivery path for tests.
func (w *WebhookSink) Post(ctx context.Context, url string, body []byte) error {
	return w.post(ctx, url, body)
}
