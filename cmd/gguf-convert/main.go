package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"

	. "github.com/gpustack/gguf-convert-go"
	"github.com/gpustack/gguf-convert-go/util/anyx"
	"github.com/gpustack/gguf-convert-go/util/json"
	"github.com/gpustack/gguf-convert-go/util/signalx"
)

var Version = "v0.0.0"

func main() {
	name := filepath.Base(os.Args[0])
	app := &cli.App{
		Name:            name,
		Usage:           "Convert, quantize and inspect GGUF model files.",
		Version:         Version,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			convert(),
			batch(),
			inspect(),
		},
	}
	if err := app.RunContext(signalx.Handler(), os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "quantize",
			Usage: "Re-encode tensor payloads into the given element type, e.g. Q4_0, F16.",
		},
		&cli.StringFlag{
			Name:  "optimize",
			Value: "none",
			Usage: "Optimization level, one of none, basic, balanced, aggressive, maximum.",
		},
		&cli.BoolFlag{
			Name:  "no-metadata",
			Usage: "Drop all metadata but the \"general.\" family from the output.",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "Re-read the written output and report structural problems as warnings.",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the conversion result as JSON.",
		},
	}
}

func conversionOptions(c *cli.Context) ([]ConvertOption, error) {
	var opts []ConvertOption
	if v := c.String("quantize"); v != "" {
		t, err := ParseGGMLType(v)
		if err != nil {
			return nil, err
		}
		opts = append(opts, UseTargetQuantization(t))
	}
	l, err := ParseOptimizationLevel(c.String("optimize"))
	if err != nil {
		return nil, err
	}
	opts = append(opts, UseOptimizationLevel(l))
	if c.Bool("no-metadata") {
		opts = append(opts, SkipMetadataPreservation())
	}
	if c.Bool("verify") {
		opts = append(opts, UseVerifyOutput())
	}
	return opts, nil
}

func convert() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert one model file.",
		ArgsUsage: "INPUT OUTPUT",
		Flags:     conversionFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("expected INPUT and OUTPUT arguments", 1)
			}
			opts, err := conversionOptions(c)
			if err != nil {
				return err
			}

			res := Convert(c.Args().Get(0), c.Args().Get(1), opts...)
			if c.Bool("json") {
				return printJSON(res)
			}
			printResults(res)
			if !res.Success {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func batch() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Convert every matching model file of a directory.",
		ArgsUsage: "INPUT_DIR OUTPUT_DIR",
		Flags: append(conversionFlags(),
			&cli.StringFlag{
				Name:  "pattern",
				Value: "*.gguf",
				Usage: "Glob pattern selecting the input files by base name.",
			}),
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("expected INPUT_DIR and OUTPUT_DIR arguments", 1)
			}
			opts, err := conversionOptions(c)
			if err != nil {
				return err
			}

			ress, succeeded, err := BatchConvert(c.Args().Get(0), c.Args().Get(1), c.String("pattern"), opts...)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(map[string]any{
					"results":   ress,
					"succeeded": succeeded,
				})
			}
			printResults(ress...)
			fmt.Printf("%d/%d succeeded\n", succeeded, len(ress))
			if succeeded != len(ress) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func inspect() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the structure of a model file.",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Inspect a remote model over HTTP range reads instead of a local PATH.",
			},
			&cli.StringFlag{
				Name:  "cache-path",
				Usage: "Cache remote inspections under the given directory.",
			},
			&cli.DurationFlag{
				Name:  "cache-expiration",
				Value: 24 * time.Hour,
				Usage: "Drop cached remote inspections older than this.",
			},
			&cli.BoolFlag{
				Name:  "tensors",
				Usage: "List the tensor descriptors as well.",
			},
			&cli.BoolFlag{
				Name:  "kv",
				Usage: "List every metadata key-value pair as well.",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw structure as JSON.",
			},
			&cli.BoolFlag{
				Name:  "mmap",
				Value: true,
				Usage: "Read the file through a memory mapping.",
			},
		},
		Action: func(c *cli.Context) error {
			var (
				gf  *GGUFFile
				err error
			)
			if u := c.String("url"); u != "" {
				var opts []GGUFReadOption
				if v := c.String("cache-path"); v != "" {
					opts = append(opts,
						UseCachePath(v),
						UseCacheExpiration(c.Duration("cache-expiration")))
				}
				gf, err = ParseGGUFFileRemote(c.Context, u, opts...)
			} else {
				if c.NArg() != 1 {
					return cli.Exit("expected PATH argument or --url", 1)
				}
				var opts []GGUFReadOption
				if c.Bool("mmap") {
					opts = append(opts, UseMMap())
				}
				gf, err = ParseGGUFFile(c.Args().Get(0), opts...)
			}
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(gf)
			}

			m, a := gf.Metadata(), gf.Architecture()
			tprint("METADATA",
				[]any{"Name", "Arch", "File Type", "Little Endian", "Size", "Parameters", "BPW"},
				[]any{m.Name, a.Architecture, m.FileTypeDescriptor, m.LittleEndian, m.Size, m.Parameters, m.BitsPerWeight})
			tprint("ARCHITECTURE",
				[]any{"Max Context", "Embedding", "Blocks", "Heads", "KV Heads", "Vocabulary"},
				[]any{a.MaximumContextLength, a.EmbeddingLength, a.BlockCount, a.AttentionHeadCount, a.AttentionHeadCountKV, a.VocabularyLength})

			if c.Bool("kv") {
				rows := make([][]any, 0, len(gf.Header.MetadataKV))
				for _, kv := range gf.Header.MetadataKV {
					v := anyx.String(kv.Value)
					if len(v) > 60 {
						v = v[:57] + "..."
					}
					rows = append(rows, []any{kv.Key, kv.ValueType, v})
				}
				tprint("KEY-VALUE",
					[]any{"Key", "Type", "Value"},
					rows...)
			}

			if c.Bool("tensors") {
				rows := make([][]any, 0, len(gf.TensorInfos))
				for _, ti := range gf.TensorInfos {
					rows = append(rows, []any{ti.Name, ti.Type, dims(ti.Dimensions), ti.Elements(), ti.Bytes(), ti.Offset})
				}
				tprint("TENSORS",
					[]any{"Name", "Type", "Dimensions", "Elements", "Bytes", "Offset"},
					rows...)
			}
			return nil
		},
	}
}

func printResults(ress ...ConversionResult) {
	rows := make([][]any, 0, len(ress))
	for _, res := range ress {
		status := "ok"
		if !res.Success {
			status = "failed"
		}
		rows = append(rows, []any{
			filepath.Base(res.InputPath),
			status,
			res.InputSize,
			res.OutputSize,
			fmt.Sprintf("%.3f", res.CompressionRatio),
			res.Elapsed.Round(time.Millisecond),
			len(res.Warnings),
		})
	}
	tprint("CONVERSION",
		[]any{"Input", "Status", "In Size", "Out Size", "Ratio", "Elapsed", "Warnings"},
		rows...)

	for _, res := range ress {
		for _, w := range res.Warnings {
			_, _ = fmt.Fprintf(os.Stderr, "warning: %s: %s\n", filepath.Base(res.InputPath), w)
		}
		for _, e := range res.Errors {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s: %s\n", filepath.Base(res.InputPath), e)
		}
	}
}

func printJSON(v any) error {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(bs))
	return nil
}

func tprint(title string, header []any, rows ...[]any) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(title)
	tw.Style().Title.Align = text.AlignCenter
	tw.AppendHeader(header)
	for _, row := range rows {
		tw.AppendRow(row)
	}
	tw.Render()
}

func dims(ds []uint64) string {
	ss := make([]string, len(ds))
	for i, d := range ds {
		ss[i] = fmt.Sprint(d)
	}
	return strings.Join(ss, " x ")
}
