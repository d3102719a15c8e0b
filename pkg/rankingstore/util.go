// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package rankingstore

import "strconv"

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func atoi(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
