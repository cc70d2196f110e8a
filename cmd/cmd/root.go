// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fskope/fskope/internal/fs"
	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/internal/img"
	"github.com/fskope/fskope/internal/logger"
	"github.com/spf13/cobra"
)

const AppName = "fskope"

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: AppName + " - forensic file system reader",
	}

	rootCmd.PersistentFlags().StringP("type", "t", "fat", "file system type (fat, fat12, fat16, fat32, reg)")
	rootCmd.PersistentFlags().StringP("offset", "o", "0", "byte offset of the file system within the image")
	rootCmd.PersistentFlags().Bool("mmap", false, "memory-map the image instead of buffered reads")
	rootCmd.PersistentFlags().String("log-level", "WARN", "minimum log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(DefineFSStatCommand())
	rootCmd.AddCommand(DefineIStatCommand())
	rootCmd.AddCommand(DefineBlkStatCommand())
	rootCmd.AddCommand(DefineBlkLsCommand())

	return rootCmd.Execute()
}

// openTarget opens the image named by path and dispatches to the declared
// back-end. The caller owns both returned handles.
func openTarget(cmd *cobra.Command, path string) (fsys.FileSystem, *img.Image, error) {
	typName, _ := cmd.Flags().GetString("type")
	typ := fsys.ParseType(typName)
	if typ == fsys.TypeUnknown {
		return nil, nil, fmt.Errorf("unknown file system type %q", typName)
	}

	offStr, _ := cmd.Flags().GetString("offset")
	offset, err := strconv.ParseInt(offStr, 0, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid offset %q: %w", offStr, err)
	}

	useMmap, _ := cmd.Flags().GetBool("mmap")

	var im *img.Image
	if useMmap {
		im, err = img.OpenMmap(path)
	} else {
		im, err = img.OpenFile(path)
	}
	if err != nil {
		return nil, nil, err
	}

	levelStr, _ := cmd.Flags().GetString("log-level")
	log := logger.New(os.Stderr, logger.ParseLevel(levelStr))

	h, err := fs.Open(im, offset, typ, log)
	if err != nil {
		im.Close()
		return nil, nil, err
	}
	return h, im, nil
}
