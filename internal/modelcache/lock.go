/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package modelcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// acquireFileLock takes an advisory lock file in dir (dir need not exist
// yet) so that two separate processes sharing the same store root also
// serialize Ensure calls for the same model, not only two in-process
// callers. The in-memory singleflight group in Store is the fast path;
// this is the cross-process path beneath it. A lock file older than ttl is
// assumed abandoned by a crashed process and reclaimed.
func acquireFileLock(dir string, ttl time.Duration) (unlock func(), err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(dir, ".lock")

	deadline := time.Now().Add(2 * time.Minute)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if reclaimStaleLock(lockPath, ttl) {
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for lock %s", lockPath)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func reclaimStaleLock(lockPath string, ttl time.Duration) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		// Lock disappeared between our failed create and this stat; let the
		// caller retry the create.
		return true
	}
	if time.Since(info.ModTime()) > ttl {
		_ = os.Remove(lockPath)
		return true
	}
	return false
}
