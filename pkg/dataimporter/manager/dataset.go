package manager

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DataSet locates the published dataset feed
type DataSet struct {
	BaseURL     string
	VersionCode int
	Gzip        bool
}

func (d DataSet) url(name string) string {
	return strings.TrimSuffix(d.BaseURL, "/") + "/" + name
}

func (d DataSet) gzipLabel() string {
	if d.Gzip {
		return ".gz"
	}
	return ""
}

func (d DataSet) ChecksumURL() string {
	return d.url("checksum.md5")
}

func (d DataSet) SizeURL() string {
	return d.url("size" + d.gzipLabel() + ".dat")
}

func (d DataSet) DataURL() string {
	return d.url("data.json" + d.gzipLabel())
}

// VersionedChecksum ties a remote checksum to the dataset format version
func (d DataSet) VersionedChecksum(remote string) string {
	return strings.TrimSpace(remote) + "_" + strconv.Itoa(d.VersionCode)
}

// ProbeConnection reports connectivity by issuing a HEAD request to the dataset host
func ProbeConnection(d DataSet, timeout time.Duration) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, d.ChecksumURL(), nil)
		if err != nil {
			return false
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}
