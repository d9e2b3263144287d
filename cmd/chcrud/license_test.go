// Licensed to ClickHouse, Inc. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. ClickHouse, Inc. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLicenseHeader(t *testing.T) {
	root := filepath.Join("..", "..")
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), "_") {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(path, ".go") {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		f, err := os.Open(path)
		require.NoError(t, err)
		var lines []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() && len(lines) < 18 {
			lines = append(lines, scanner.Text())
		}
		f.Close()
		require.Len(t, lines, 18, path)
		assert.Equal(t, "// Licensed to ClickHouse, Inc. under one or more contributor", lines[0], path)
		assert.Equal(t, "// under the License.", lines[15], path)
		assert.Equal(t, "", lines[16], path)
		assert.NotEqual(t, "", lines[17], "%s: one blank line after the license header", path)
	}
}
