// Command xmltab converts XML (or HTML table) documents into csv, xlsx or
// parquet artifacts, auto-detecting the repeating row element.
//
// Usage:
//
//	xmltab -format csv -out outputs report.xml more.xml
//
// Multiple inputs produce a single zip bundle; one input produces a bare
// artifact.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"xmltab/internal/convert"
	"xmltab/internal/jobstore"
	"xmltab/internal/jobstore/memory"
)

func main() {
	var (
		format     string
		outDir     string
		columnsFlg string
		aliasesFlg string
		pathFlg    string
		maxBytes   int64
		batchSize  int
	)

	flag.StringVar(&format, "format", "xlsx", "output format: csv, xlsx or parquet")
	flag.StringVar(&outDir, "out", "outputs", "directory receiving the artifact")
	flag.StringVar(&columnsFlg, "columns", "", "comma-separated column projection (flattened path keys)")
	flag.StringVar(&aliasesFlg, "aliases", "", `header aliases as JSON, e.g. '{"Tx.TradDt":"Trade Date"}'`)
	flag.StringVar(&pathFlg, "path", "auto", "extraction path: auto, stream or memory")
	flag.Int64Var(&maxBytes, "max-input-bytes", 0, "reject inputs larger than this (0 = no limit)")
	flag.IntVar(&batchSize, "batch-size", 0, "columnar batch size (0 = default)")
	flag.Parse()

	if flag.NArg() == 0 {
		fatalf("no input files (usage: xmltab [flags] file.xml ...)")
	}

	var columns []string
	if columnsFlg != "" {
		for _, c := range strings.Split(columnsFlg, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}

	var aliases map[string]string
	if aliasesFlg != "" {
		if err := json.Unmarshal([]byte(aliasesFlg), &aliases); err != nil {
			fatalf("decode -aliases: %v", err)
		}
	}

	var pathMode convert.PathMode
	switch pathFlg {
	case "auto":
		pathMode = convert.PathAuto
	case "stream":
		pathMode = convert.PathStream
	case "memory":
		pathMode = convert.PathInMemory
	default:
		fatalf("unknown -path %q (want auto, stream or memory)", pathFlg)
	}

	files := make([]jobstore.InputFile, 0, flag.NArg())
	for _, arg := range flag.Args() {
		files = append(files, jobstore.InputFile{Path: arg, Name: arg})
	}

	runner := &convert.Runner{
		Store:         memory.New(),
		OutputDir:     outDir,
		MaxInputBytes: maxBytes,
		BatchSize:     batchSize,
		Path:          pathMode,
	}

	job, err := runner.Convert(context.Background(), convert.Request{
		Files:   files,
		Columns: columns,
		Aliases: aliases,
		Format:  format,
	})
	if err != nil {
		fatalf("convert: %v", err)
	}

	fmt.Printf("%s\t%s\n", job.Artifact.Path, job.Artifact.Name)
}

func fatalf(format string, v ...any) {
	log.Printf(format, v...)
	os.Exit(1)
}
