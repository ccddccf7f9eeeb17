// Command minify writes minified copies of the play server's templates and static assets to dist/.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
}

func main() {
	var (
		inputFile  = flag.String("input", "", "Minify a single file (requires -output)")
		outputFile = flag.String("output", "", "Output file path for -input")
		outDir     = flag.String("dist", "dist", "Output directory when minifying all assets")
	)
	flag.Parse()

	m := newMinifier()

	if *inputFile != "" {
		if *outputFile == "" {
			logrus.Fatal("Usage: go run ./cmd/minify -input=<file> -output=<file>")
		}
		if _, err := minifyFile(m, *inputFile, *outputFile); err != nil {
			logrus.Fatalf("Failed to minify %s: %v", *inputFile, err)
		}
		return
	}

	total, err := build(m, []string{"templates", "static"}, *outDir)
	if err != nil {
		logrus.Fatalf("Minification failed: %v", err)
	}
	fmt.Printf("Minified %d files into %s/\n", total, *outDir)
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return m
}

// build minifies every known asset under roots into outDir, keeping relative paths.
// Files of other types are copied unchanged.
func build(m *minify.M, roots []string, outDir string) (int, error) {
	count := 0
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			dst := filepath.Join(outDir, path)
			if _, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]; !ok {
				return copyFile(path, dst)
			}
			stats, err := minifyFile(m, path, dst)
			if err != nil {
				return err
			}
			count++
			logrus.WithFields(logrus.Fields{
				"file":      path,
				"original":  stats.original,
				"minified":  stats.minified,
				"reduction": fmt.Sprintf("%.1f%%", stats.reduction()),
			}).Info("minified")
			return nil
		})
		if err != nil {
			return count, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return count, nil
}

type sizes struct {
	original, minified int
}

func (s sizes) reduction() float64 {
	if s.original == 0 {
		return 0
	}
	return float64(s.original-s.minified) / float64(s.original) * 100
}

func minifyFile(m *minify.M, srcPath, dstPath string) (sizes, error) {
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(srcPath))]
	if !ok {
		return sizes{}, fmt.Errorf("unsupported file type: %s (supported: css, js, html)", filepath.Ext(srcPath))
	}
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return sizes{}, err
	}
	minified, err := m.Bytes(mediaType, src)
	if err != nil {
		return sizes{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return sizes{}, err
	}
	if err := os.WriteFile(dstPath, minified, 0o644); err != nil {
		return sizes{}, err
	}
	return sizes{original: len(src), minified: len(minified)}, nil
}

func copyFile(srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, data, 0o644)
}
