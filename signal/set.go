// Copyright 2025 Google LLC
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

package signal

// Set is a bitmask over signal numbers 1..NumberOfSignals.
type Set uint32

func bit(sig Signal) Set { return 1 << uint(sig-1) }

// Add returns s with sig added.
func (s Set) Add(sig Signal) Set { return s | bit(sig) }

// Remove returns s with sig removed.
func (s Set) Remove(sig Signal) Set { return s &^ bit(sig) }

// Has reports whether sig is a member of s.
func (s Set) Has(sig Signal) bool { return s&bit(sig) != 0 }

// Union returns the set union of s and other.
func (s Set) Union(other Set) Set { return s | other }
