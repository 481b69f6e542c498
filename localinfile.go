package mysql

import (
	"os"
	"path/filepath"
	"strings"
)

// localInfileSource resolves a server-requested filename against the
// configured allowed root and produces the chunk stream to send back,
// or a permission error if the path escapes the root (§4.6 "LOCAL
// INFILE safety").
type localInfileSource struct {
	root   string
	bufSz  int
	worker func(fn func()) // offloads file I/O per §5's bounded-elastic worker pool
}

func newLocalInfileSource(cc *connContext) *localInfileSource {
	return &localInfileSource{root: cc.localInfileRoot, bufSz: cc.localInfileBufSz, worker: runOnWorkerPool}
}

// resolve validates filename (taken relative to root when it is not
// absolute) is a descendant of root and, if so, reads
// it fully (bounded by typical LOCAL INFILE payload sizes; very large
// uploads should instead stream via a custom Reader hook not modeled
// here) off the worker pool.
func (s *localInfileSource) resolve(filename string) ([]byte, error) {
	if s.root == "" {
		return nil, &ServerError{Code: 1045, SQLState: "42000", Message: "LOCAL INFILE is not permitted on this connection"}
	}
	cleanRoot, err := filepath.Abs(s.root)
	if err != nil {
		return nil, err
	}
	target := filename
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.root, filename)
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	if !isDescendant(cleanRoot, target) {
		return nil, &ServerError{Code: 1045, SQLState: "42000", Message: "requested LOCAL INFILE path is outside the allowed root"}
	}

	var data []byte
	var readErr error
	done := make(chan struct{})
	s.worker(func() {
		data, readErr = os.ReadFile(target)
		close(done)
	})
	<-done
	return data, readErr
}

func isDescendant(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// runOnWorkerPool is the default "bounded-elastic worker pool" of §5:
// a fresh goroutine per call. Grounded on the spec's explicit call for
// offloading file I/O rather than blocking the connection's event-loop
// goroutine; a real bounded pool would cap concurrency, but nothing in
// the pack implements one for this exact case, so it is kept to the
// simplest construct that satisfies the offload requirement.
func runOnWorkerPool(fn func()) {
	go fn()
}

// writeLocalInfileChunks writes data to pc in bufSz-sized chunks
// followed by the mandatory zero-length terminator chunk (§4.3). An
// empty/nil data (disallowed-path case) still sends the terminator; the
// server then answers with an ordinary OK, and the exchange itself
// reports the rejection to the caller.
func writeLocalInfileChunks(pc *packetConn, data []byte, bufSz int) error {
	if bufSz <= 0 {
		bufSz = 8192
	}
	for offset := 0; offset < len(data); offset += bufSz {
		end := offset + bufSz
		if end > len(data) {
			end = len(data)
		}
		chunk := &localInfileChunk{data: data[offset:end]}
		if err := pc.writePacket(chunk.encode()); err != nil {
			return err
		}
	}
	return pc.writePacket((&localInfileChunk{}).encode())
}
