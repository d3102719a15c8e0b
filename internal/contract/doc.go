// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract provides request-shape validation for the HTTP
// surface: envelope size, session id length, and pattern count.
//
// # Envelope Size Limits
//
// The server enforces a soft limit on /intent envelope payloads to
// bound memory use from the host-assistant hooks:
//
//	limit := contract.EnvelopeSoftLimitBytes()
//
//	result := contract.ValidateEnvelopeSize(payloadBytes)
//	if !result.OK {
//	    log.Printf("rejected: %s", result.Message)
//	}
//
// # Configuration via Environment
//
// The soft limit can be adjusted via NEXTREAD_SOFT_LIMIT_BYTES:
//
//	export NEXTREAD_SOFT_LIMIT_BYTES=2097152  # 2 MiB
//
// If unset or invalid, DefaultEnvelopeSoftLimitBytes (1 MiB) applies.
//
// # Constants
//
//   - DefaultEnvelopeSoftLimitBytes: baseline envelope soft limit (1 MiB)
//   - SessionIDMaxBytes: maximum session_id/tool_use_id length (128 bytes)
//   - MaxPatterns: maximum patterns per POST /pattern request (32)
package contract
