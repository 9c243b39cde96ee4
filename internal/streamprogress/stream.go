// Package streamprogress wraps request and response bodies to emit
// transferred/total/progress events without blocking the primary read path.
package streamprogress

import "io"

// ProgressEvent is one reported chunk transfer.
type ProgressEvent struct {
	TransferredBytes int64
	TotalBytes       int64
	Progress         float64 // 0-100; tops at 100 only once the final size is known
	Chunk            []byte
}

// OnProgress receives progress events. Implementations should not block for
// long — the response-side wrapper drops events rather than stall the
// primary read path (see WrapResponseBody).
type OnProgress func(ProgressEvent)

func progressPct(transferred, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(transferred) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// countingReader wraps a request body, calling onProgress synchronously
// after each Read — the request path has no concurrent consumer to
// decouple from, unlike the response side.
type countingReader struct {
	r           io.Reader
	total       int64
	transferred int64
	onProgress  OnProgress
}

// NewRequestReader wraps r for the outbound request body. contentLength, if
// known, seeds TotalBytes; when unset (<=0) and forceFullDrain is true, r is
// fully read upfront so TotalBytes is exact before any chunk is emitted —
// otherwise TotalBytes tracks max(total, transferred) so Progress only
// reaches 100 on the final chunk.
func NewRequestReader(r io.Reader, contentLength int64, forceFullDrain bool, onProgress OnProgress) (io.Reader, error) {
	if onProgress == nil {
		return r, nil
	}
	total := contentLength
	if total <= 0 && forceFullDrain {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		total = int64(len(data))
		r = &byteSliceReader{data: data}
	}
	return &countingReader{r: r, total: total, onProgress: onProgress}, nil
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.transferred += int64(n)
		total := c.total
		if total < c.transferred {
			total = c.transferred
		}
		chunk := make([]byte, n)
		copy(chunk, p[:n])
		c.onProgress(ProgressEvent{
			TransferredBytes: c.transferred,
			TotalBytes:       total,
			Progress:         progressPct(c.transferred, total),
			Chunk:            chunk,
		})
	}
	return n, err
}

type byteSliceReader struct {
	data []byte
	pos  int
}

func (b *byteSliceReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

// WrapResponseBody tees body: the returned ReadCloser is the primary branch
// fed to the response parser; a second internal branch is consumed by a
// background goroutine that invokes onProgress per chunk. The consumer
// never blocks the primary branch — events queue on a small buffered
// channel and are dropped (not delivered late) if the consumer falls
// behind, per the spec's "non-blocking select send" requirement.
func WrapResponseBody(body io.ReadCloser, contentLength int64, onProgress OnProgress) io.ReadCloser {
	if onProgress == nil || body == nil {
		return body
	}

	pr, pw := io.Pipe()
	tee := io.TeeReader(body, pw)

	events := make(chan ProgressEvent, 16)
	go readProgressBranch(pr, contentLength, events)
	go func() {
		for ev := range events {
			onProgress(ev)
		}
	}()

	return &teeReadCloser{primary: tee, body: body, pw: pw}
}

func readProgressBranch(pr *io.PipeReader, contentLength int64, events chan<- ProgressEvent) {
	defer close(events)
	buf := make([]byte, 32*1024)
	var transferred int64
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			transferred += int64(n)
			total := contentLength
			if total < transferred {
				total = transferred
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case events <- ProgressEvent{
				TransferredBytes: transferred,
				TotalBytes:       total,
				Progress:         progressPct(transferred, total),
				Chunk:            chunk,
			}:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

type teeReadCloser struct {
	primary io.Reader
	body    io.ReadCloser
	pw      *io.PipeWriter
}

func (t *teeReadCloser) Read(p []byte) (int, error) {
	n, err := t.primary.Read(p)
	if err != nil {
		if err == io.EOF {
			t.pw.Close()
		} else {
			t.pw.CloseWithError(err)
		}
	}
	return n, err
}

func (t *teeReadCloser) Close() error {
	t.pw.Close()
	return t.body.Close()
}
