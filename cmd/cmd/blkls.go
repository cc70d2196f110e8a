package cmd

import (
	"fmt"
	"os"

	"github.com/fskope/fskope/internal/env"
	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/pkg/dfxml"
	"github.com/fskope/fskope/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineBlkLsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "blkls <image>",
		Short:        "Export or list blocks selected by allocation filters",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunBlkLs,
	}

	cmd.Flags().Uint64("start", 0, "first block of the walk (defaults to the first block)")
	cmd.Flags().Uint64("end", 0, "last block of the walk (defaults to the last block in the image)")
	cmd.Flags().BoolP("alloc", "a", false, "select allocated blocks")
	cmd.Flags().BoolP("unalloc", "A", false, "select unallocated blocks")
	cmd.Flags().BoolP("meta", "m", false, "select metadata blocks")
	cmd.Flags().BoolP("content", "c", false, "select content blocks")
	cmd.Flags().BoolP("list", "l", false, "list block addresses instead of writing contents")
	cmd.Flags().String("max-bytes", "", "stop after exporting this many bytes (e.g. 512MB)")
	cmd.Flags().String("dfxml", "", "write a DFXML byte-run report to the given file")

	return cmd
}

func RunBlkLs(cmd *cobra.Command, args []string) error {
	h, im, err := openTarget(cmd, args[0])
	if err != nil {
		return err
	}
	defer im.Close()
	defer h.Close()

	var flags fsys.Flags
	if b, _ := cmd.Flags().GetBool("alloc"); b {
		flags |= fsys.FlagAlloc
	}
	if b, _ := cmd.Flags().GetBool("unalloc"); b {
		flags |= fsys.FlagUnalloc
	}
	if b, _ := cmd.Flags().GetBool("meta"); b {
		flags |= fsys.FlagMeta
	}
	if b, _ := cmd.Flags().GetBool("content"); b {
		flags |= fsys.FlagContent
	}

	start, _ := cmd.Flags().GetUint64("start")
	if start < h.FirstBlock() {
		start = h.FirstBlock()
	}
	end, _ := cmd.Flags().GetUint64("end")
	if end == 0 || end > h.LastBlockActual() {
		end = h.LastBlockActual()
	}

	list, _ := cmd.Flags().GetBool("list")
	reportPath, _ := cmd.Flags().GetString("dfxml")

	maxBytes := uint64(0)
	if s, _ := cmd.Flags().GetString("max-bytes"); s != "" {
		maxBytes, err = format.ParseBytes(s)
		if err != nil {
			return err
		}
	}

	var runs runAccumulator
	blockSize := uint64(h.BlockSize())

	err = h.WalkBlocks(start, end, flags, func(b *fsys.Block) fsys.WalkAction {
		if maxBytes > 0 && runs.size+blockSize > maxBytes {
			return fsys.WalkStop
		}
		runs.add(b.Addr, blockSize)
		if list {
			fmt.Printf("%d\n", b.Addr)
			return fsys.WalkCont
		}
		if _, werr := os.Stdout.Write(b.Data); werr != nil {
			return fsys.WalkError
		}
		return fsys.WalkCont
	})
	if err != nil {
		return err
	}

	if reportPath != "" {
		return writeRunReport(reportPath, args[0], im.Size(), int(blockSize), runs)
	}
	return nil
}

// runAccumulator coalesces visited blocks into contiguous byte runs.
type runAccumulator struct {
	runs []dfxml.ByteRun
	next uint64
	size uint64
}

func (r *runAccumulator) add(addr, blockSize uint64) {
	off := addr * blockSize
	if len(r.runs) > 0 && off == r.next {
		r.runs[len(r.runs)-1].Length += blockSize
	} else {
		r.runs = append(r.runs, dfxml.ByteRun{
			Offset:    r.size,
			ImgOffset: off,
			Length:    blockSize,
		})
	}
	r.next = off + blockSize
	r.size += blockSize
}

func writeRunReport(path, image string, imageSize int64, blockSize int, runs runAccumulator) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := dfxml.NewDFXMLWriter(f)
	err = w.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: image,
			SectorSize:    blockSize,
			ImageSize:     uint64(imageSize),
		},
	})
	if err != nil {
		return err
	}

	err = w.WriteFileObject(dfxml.FileObject{
		Filename: "blkls-export",
		FileSize: runs.size,
		ByteRuns: dfxml.ByteRuns{Runs: runs.runs},
	})
	if err != nil {
		return err
	}
	return w.Close()
}
