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

package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokernel/gokernel/container"
)

func collect[T any](l *container.List[T]) []T {
	var out []T
	l.Do(func(v T) { out = append(out, v) })
	return out
}

func TestListPushAndRemove(t *testing.T) {
	l := container.New[int]()
	l.PushBack(1)
	l.PushBack(2)
	e3 := l.PushBack(3)
	l.PushFront(0)

	assert.Equal(t, []int{0, 1, 2, 3}, collect(l))
	assert.Equal(t, 4, l.Len())

	l.Remove(e3)
	assert.Equal(t, []int{0, 1, 2}, collect(l))
	assert.Equal(t, 3, l.Len())

	assert.Equal(t, 0, l.RemoveFront())
	assert.Equal(t, 2, l.RemoveBack())
	assert.Equal(t, []int{1}, collect(l))
}

func TestListSpliceBack(t *testing.T) {
	a := container.New[int]()
	a.PushBack(1)
	a.PushBack(2)

	b := container.New[int]()
	b.PushBack(3)
	b.PushBack(4)

	a.SpliceBack(b)
	assert.Equal(t, []int{1, 2, 3, 4}, collect(a))
	assert.Equal(t, 0, b.Len())
}

func TestListSort(t *testing.T) {
	l := container.New[int]()
	for _, v := range []int{5, 3, 4, 1, 2} {
		l.PushBack(v)
	}
	l.Sort(func(a, b int) int { return a - b })
	assert.Equal(t, []int{1, 2, 3, 4, 5}, collect(l))
}

func TestListContains(t *testing.T) {
	l := container.New[int]()
	l.PushBack(1)
	l.PushBack(2)
	require.True(t, l.Contains(2, func(a, b int) bool { return a == b }))
	require.False(t, l.Contains(3, func(a, b int) bool { return a == b }))
}
