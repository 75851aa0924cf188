// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merkle 区块流条目的 merkle 根与证明路径
package merkle

import (
	"bytes"

	"github.com/zeebo/blake3"
)

var zeroHash [32]byte

// LeafHash hash of an encoded leaf
func LeafHash(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// GetHashFromTwoHash 计算左右节点hash的父hash
func GetHashFromTwoHash(left []byte, right []byte) []byte {
	if left == nil || right == nil {
		return nil
	}
	h := blake3.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// nextLevel pairs the nodes of level. The last node of an odd level is paired with itself.
func nextLevel(level [][]byte) (next [][]byte, mutated bool) {
	next = make([][]byte, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			next = append(next, GetHashFromTwoHash(level[i], level[i]))
			break
		}
		// two equal siblings let different leaf lists share a root
		if bytes.Equal(level[i], level[i+1]) {
			mutated = true
		}
		next = append(next, GetHashFromTwoHash(level[i], level[i+1]))
	}
	return next, mutated
}

// GetMerkleRoot 获取merkle roothash, 没有叶子时返回全零hash
func GetMerkleRoot(leaves [][]byte) (roothash []byte, mutated bool) {
	if len(leaves) == 0 {
		return zeroHash[:], false
	}
	level := leaves
	for len(level) > 1 {
		var m bool
		level, m = nextLevel(level)
		mutated = mutated || m
	}
	return level[0], mutated
}

// GetMerkleBranch 获取指定叶子的branch, position从0开始
func GetMerkleBranch(leaves [][]byte, position uint32) [][]byte {
	if int(position) >= len(leaves) {
		return nil
	}
	var branch [][]byte
	level := leaves
	pos := int(position)
	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling >= len(level) {
			sibling = pos
		}
		branch = append(branch, level[sibling])
		level, _ = nextLevel(level)
		pos >>= 1
	}
	return branch
}

// GetMerkleRootFromBranch 通过branch获取对应的roothash, 用于指定叶子的proof证明
func GetMerkleRootFromBranch(merkleBranch [][]byte, leaf []byte, index uint32) []byte {
	hash := leaf
	for _, branch := range merkleBranch {
		if (index & 1) != 0 {
			hash = GetHashFromTwoHash(branch, hash)
		} else {
			hash = GetHashFromTwoHash(hash, branch)
		}
		index >>= 1
	}
	return hash
}
