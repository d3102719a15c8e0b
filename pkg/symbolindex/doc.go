// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package symbolindex maintains the inverted index from identifier-like
// tokens to file+line positions, and answers the three symbol query
// modes: single/multi-token lookup, AND intersection, and a bounded
// working-set regex scan.
//
// This is the only package that reads raw file contents. It owns its own
// on-disk representation, independent of the Ranking Store (pkg/rankingstore).
package symbolindex
