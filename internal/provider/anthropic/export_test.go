// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package anthropic

// CostOf is exported for tests.
var CostOf = costOf
