// Package tests fetches the official Gigatron software corpus (ROM images
// and GT1 programs) used by the end-to-end tests. Files are downloaded
// once and cached next to this package.
package tests

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

// corpusFiles are fetched from the official gigatron-rom repository.
var corpusFiles = map[string]string{
	"gigatron.rom": "https://raw.githubusercontent.com/kervinck/gigatron-rom/master/gigatron.rom",
	"Blinky.gt1":   "https://raw.githubusercontent.com/kervinck/gigatron-rom/master/Apps/Blinky/Blinky.gt1",
	"Lines.gt1":    "https://raw.githubusercontent.com/kervinck/gigatron-rom/master/Apps/Lines/Lines_v1.gt1",
}

func downloadCorpus(dest string) error {
	tempdir, err := os.MkdirTemp("", "gigatron.corpus.*")
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for name, url := range corpusFiles {
		g.Go(func() error {
			resp, err := http.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s: %s", url, resp.Status)
			}

			f, err := os.Create(filepath.Join(tempdir, name))
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = io.Copy(f, resp.Body)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		os.RemoveAll(tempdir)
		return err
	}
	return os.Rename(tempdir, dest)
}

var corpusMu sync.Mutex

// CorpusPath returns the directory holding the test corpus, downloading
// it first if necessary. Tests are skipped when the corpus can't be
// fetched (offline CI).
func CorpusPath(tb testing.TB) string {
	corpusMu.Lock()
	defer corpusMu.Unlock()

	_, b, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(b), "corpus")

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		tb.Log("test corpus not found, downloading it...")
		if err := downloadCorpus(dir); err != nil {
			tb.Skipf("could not download test corpus: %s", err)
		}
		tb.Log("test corpus downloaded in", dir)
	}
	return dir
}

// CorpusFile returns the path of one corpus file, fetching the corpus if
// needed.
func CorpusFile(tb testing.TB, name string) string {
	return filepath.Join(CorpusPath(tb), name)
}
