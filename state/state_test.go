// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"testing"
	"time"

	"github.com/33cn/dispatch/common/db"
	"github.com/33cn/dispatch/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemState(t *testing.T) (*DBState, db.DB) {
	d, err := db.NewGoLevelDBMem()
	require.NoError(t, err)
	return NewDBState(d), d
}

func TestWrappedStateReadsThrough(t *testing.T) {
	root, _ := newMemState(t)
	root.Put("svc", "a", []byte("1"))

	w := NewWrappedState(root)
	v, err := w.Get("svc", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	w.Put("svc", "a", []byte("2"))
	w.Put("svc", "b", []byte("3"))
	w.Remove("svc", "c")
	v, _ = w.Get("svc", "a")
	assert.Equal(t, []byte("2"), v)
	v, _ = root.Get("svc", "a")
	assert.Equal(t, []byte("1"), v)

	w.Remove("svc", "a")
	_, err = w.Get("svc", "a")
	assert.Equal(t, types.ErrNotFound, err)
	assert.True(t, w.IsModified())
	assert.Equal(t, []string{"a", "b", "c"}, w.ModifiedKeys("svc"))
}

func TestWrappedStateCommitOrder(t *testing.T) {
	root, _ := newMemState(t)
	var seen []string
	root.AddListener(func(c StateChange) { seen = append(seen, c.Service+"/"+c.Key) })

	w := NewWrappedState(root)
	w.Put("z", "2", []byte("x"))
	w.Put("a", "9", []byte("x"))
	w.Put("z", "1", []byte("x"))
	w.Remove("a", "0")
	changes, err := w.Commit()
	require.NoError(t, err)
	assert.Len(t, changes, 4)
	assert.Equal(t, []string{"a/0", "a/9", "z/1", "z/2"}, seen)
	assert.True(t, changes[0].Deleted)
	assert.False(t, w.IsModified())

	v, err := root.Get("z", "1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), v)
}

func TestWrappedStateNested(t *testing.T) {
	root, _ := newMemState(t)
	base := NewWrappedState(root)
	child := NewWrappedState(base)
	child.Put("s", "k", []byte("v"))
	_, err := base.Get("s", "k")
	assert.Equal(t, types.ErrNotFound, err)
	_, err = child.Commit()
	require.NoError(t, err)
	v, err := base.Get("s", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	_, err = root.Get("s", "k")
	assert.Equal(t, types.ErrNotFound, err)

	readOnly := NewWrappedState(dbReader{})
	readOnly.Put("s", "k", nil)
	_, err = readOnly.Commit()
	assert.Equal(t, types.ErrIllegalState, err)
}

func TestDBStateFlush(t *testing.T) {
	root, d := newMemState(t)
	root.Put("svc", "a", []byte("1"))
	root.Put("svc", "b", []byte("2"))
	_, err := d.Get([]byte("svc/a"))
	assert.Equal(t, db.ErrNotFoundInDb, err)

	require.NoError(t, root.Flush())
	v, err := d.Get([]byte("svc/a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	root.Remove("svc", "a")
	root.Put("svc", "c", []byte("3"))
	keys, err := root.Keys("svc")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)
	require.NoError(t, root.Flush())
	_, err = d.Get([]byte("svc/a"))
	assert.Equal(t, db.ErrNotFoundInDb, err)

	// a fresh root over the same db sees flushed state
	again := NewDBState(d)
	v, err = again.Get("svc", "c")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
	require.NoError(t, again.Flush())
}

type sample struct {
	Name  string    `cbor:"1,keyasint"`
	Count int64     `cbor:"2,keyasint"`
	When  time.Time `cbor:"3,keyasint"`
}

func TestCodec(t *testing.T) {
	root, _ := newMemState(t)
	in := sample{Name: "n", Count: 7, When: time.Unix(1700000000, 123).UTC()}
	require.NoError(t, PutValue(root, "svc", "k", &in))

	var out sample
	ok, err := GetValue(root, "svc", "k", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Count, out.Count)
	assert.True(t, in.When.Equal(out.When))

	ok, err = GetValue(root, "svc", "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	root.Put("svc", "bad", []byte{0xff, 0x00})
	_, err = GetValue(root, "svc", "bad", &out)
	assert.Equal(t, types.ErrDecode, errors.Cause(err))

	a, err := Marshal(&in)
	require.NoError(t, err)
	b, err := Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
