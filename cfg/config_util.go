// Copyright 2024 Google LLC
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

package cfg

import "runtime"

// DefaultReadAheadWorkers returns a parallelism hint for background
// readahead fetches, scaled with the number of available CPUs.
func DefaultReadAheadWorkers() int {
	return max(4, runtime.NumCPU())
}

// IsBlockCacheEnabled reports whether the block cache should be constructed
// at all; a zero capacity disables it outright.
func IsBlockCacheEnabled(config *Config) bool {
	return config.Cache.CapacityBlocks > 0
}
