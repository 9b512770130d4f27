package dictionary

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads dictionary dumps into a local cache directory.
type Fetcher struct {
	client    *resty.Client
	fileCache *FileCache
}

func NewFetcher(cacheDirectory string) *Fetcher {
	return &Fetcher{
		client:    resty.New(),
		fileCache: NewFileCache(cacheDirectory),
	}
}

func (f *Fetcher) download(ctx context.Context, dumpURL string) ([]byte, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(dumpURL)
	if err != nil {
		return nil, fmt.Errorf("client.R.Get > %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("status code: %d, body: %s", res.StatusCode(), string(res.Body()))
	}
	return res.Body(), nil
}

// Fetch returns the local path of the dump at dumpURL, downloading it on
// the first call.
func (f *Fetcher) Fetch(ctx context.Context, dumpURL string) (string, error) {
	u, err := url.Parse(dumpURL)
	if err != nil {
		return "", fmt.Errorf("url.Parse > %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("no file name in %s", dumpURL)
	}

	localPath, err := f.fileCache.cache(name, func() ([]byte, error) {
		return f.download(ctx, dumpURL)
	})
	if err != nil {
		return "", fmt.Errorf("fileCache.cache > %w", err)
	}
	return localPath, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g gzipFile) Close() error {
	_ = g.Reader.Close()
	return g.file.Close()
}

// OpenDump opens a dump file, decompressing it when the name ends in .gz.
func OpenDump(name string) (io.ReadCloser, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("os.Open > %w", err)
	}
	if !strings.HasSuffix(name, ".gz") {
		return file, nil
	}
	reader, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("gzip.NewReader > %w", err)
	}
	return gzipFile{Reader: reader, file: file}, nil
}
