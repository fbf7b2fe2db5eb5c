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

// Package modelfetch supplies the Cache Store's injectable fetch_fn. The
// store itself is agnostic to how artifacts are fetched; this package
// provides one concrete mechanism — shelling out to huggingface-cli as a
// local subprocess with the usual HF_* environment conventions.
package modelfetch

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/modelcache"
)

// HuggingFaceFetcher builds modelcache.FetchFunc values that shell out to
// huggingface-cli to populate a target directory.
type HuggingFaceFetcher struct {
	// BinaryPath is the huggingface-cli executable; defaults to looking it
	// up on PATH when empty.
	BinaryPath string

	// Token, when non-empty, is passed as HF_TOKEN so gated/private models
	// can be fetched.
	Token string
}

// Fetch returns a modelcache.FetchFunc bound to modelID.
func (h HuggingFaceFetcher) Fetch(modelID string) modelcache.FetchFunc {
	return func(ctx context.Context, targetDir string) (*string, error) {
		bin := h.BinaryPath
		if bin == "" {
			bin = "huggingface-cli"
		}

		cmd := exec.CommandContext(ctx, bin, "download", modelID, "--local-dir", targetDir)
		cmd.Env = append(os.Environ(),
			"HF_XET_CHUNK_CACHE_SIZE_BYTES=0",
			"HF_XET_SHARD_CACHE_SIZE_BYTES=0",
			"HF_XET_HIGH_PERFORMANCE=1",
			"HF_HOME="+targetDir+"/.hf",
		)
		if h.Token != "" {
			cmd.Env = append(cmd.Env, "HF_TOKEN="+h.Token)
		}

		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return nil, coreerr.NewFetchFailed(err, "huggingface-cli download %s: %s", modelID, firstLine(stderr.String(), out))
		}

		commit := parseRevision(out)
		if commit == "" {
			return nil, nil
		}
		return &commit, nil
	}
}

func firstLine(stderr string, stdout []byte) string {
	if stderr != "" {
		return stderr
	}
	return string(stdout)
}

// parseRevision extracts a commit hash from huggingface-cli's final output
// line, which prints the resolved snapshot directory ending in the commit
// hash (.../snapshots/<hash>). Best-effort: an unparseable line just means
// CacheEntry.CommitHash stays empty.
func parseRevision(out []byte) string {
	line := lastNonEmptyLine(out)
	idx := bytes.LastIndexByte([]byte(line), '/')
	if idx == -1 || idx == len(line)-1 {
		return ""
	}
	return line[idx+1:]
}

func lastNonEmptyLine(out []byte) string {
	lines := bytes.Split(bytes.TrimRight(out, "\n"), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(bytes.TrimSpace(lines[i])) > 0 {
			return string(bytes.TrimSpace(lines[i]))
		}
	}
	return ""
}
