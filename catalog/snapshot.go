package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hupe1980/nerdgo/blobstore"
	"github.com/hupe1980/nerdgo/codec"
	"github.com/hupe1980/nerdgo/internal/checksum"
)

// Snapshot layout:
//
//	Magic       (8 bytes) - "NERDCAT1"
//	Version     (4 bytes)
//	Compression (1 byte)
//	CodecLen    (1 byte)
//	Codec       (CodecLen bytes)
//	Count       (8 bytes) - number of records
//	RawLen      (8 bytes) - encoded payload length before compression
//	StoredLen   (8 bytes) - payload length as stored
//	Checksum    (4 bytes) - CRC32C of the preceding header bytes and the stored payload
//	Payload     (StoredLen bytes) - codec-encoded []Record
const snapshotVersion = 2

// lz4MaxRatio bounds the expansion of an LZ4 block: one literal-length or
// match-length byte describes at most 255 output bytes.
const lz4MaxRatio = 255

var snapshotMagic = [8]byte{'N', 'E', 'R', 'D', 'C', 'A', 'T', '1'}

type saveOptions struct {
	codec       codec.Codec
	compression Compression
}

// SaveOption configures snapshot encoding.
type SaveOption func(*saveOptions)

// WithCodec selects the record codec. Default: codec.Default.
func WithCodec(c codec.Codec) SaveOption {
	return func(o *saveOptions) { o.codec = c }
}

// WithCompression selects payload compression. Default: CompressionNone.
func WithCompression(c Compression) SaveOption {
	return func(o *saveOptions) { o.compression = c }
}

// Encode writes a snapshot of c to w.
func Encode(w io.Writer, c *Catalog, opts ...SaveOption) error {
	o := saveOptions{codec: codec.Default}
	for _, fn := range opts {
		fn(&o)
	}

	records := c.records
	if records == nil {
		records = []Record{}
	}
	raw, err := o.codec.Marshal(records)
	if err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	stored, err := compress(raw, o.compression)
	if err != nil {
		return fmt.Errorf("catalog: compress: %w", err)
	}

	name := o.codec.Name()
	if len(name) > 255 {
		return fmt.Errorf("catalog: codec name too long: %q", name)
	}

	hdr := make([]byte, 0, 48+len(name))
	hdr = append(hdr, snapshotMagic[:]...)
	hdr = binary.LittleEndian.AppendUint32(hdr, snapshotVersion)
	hdr = append(hdr, byte(o.compression), byte(len(name)))
	hdr = append(hdr, name...)
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(len(records)))
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(len(raw)))
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(len(stored)))

	h := checksum.New()
	_, _ = h.Write(hdr)
	_, _ = h.Write(stored)
	hdr = binary.LittleEndian.AppendUint32(hdr, h.Sum32())

	if _, err := w.Write(hdr); err != nil {
		return err
	}
	_, err = w.Write(stored)
	return err
}

// Decode reads a snapshot written by Encode.
func Decode(data []byte) (*Catalog, error) {
	r := snapshotReader{buf: data}

	if !bytes.Equal(r.next(8), snapshotMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	if v := r.u32(); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}
	comp := Compression(r.u8())
	name := string(r.next(int(r.u8())))
	count := r.u64()
	rawLen := r.u64()
	storedLen := r.u64()
	hdrLen := r.pos
	sum := r.u32()
	if r.short {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidSnapshot)
	}

	if storedLen != uint64(len(r.buf)-r.pos) {
		return nil, fmt.Errorf("%w: payload length mismatch", ErrInvalidSnapshot)
	}
	stored := r.next(int(storedLen))

	h := checksum.New()
	_, _ = h.Write(data[:hdrLen])
	_, _ = h.Write(stored)
	if h.Sum32() != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSnapshot)
	}
	if rawLen > maxRawLen(comp, storedLen) {
		return nil, fmt.Errorf("%w: payload of %d bytes cannot expand to %d", ErrInvalidSnapshot, storedLen, rawLen)
	}

	cdc, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidSnapshot, name)
	}
	raw, err := decompress(stored, comp, int(rawLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	var records []Record
	if err := cdc.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if uint64(len(records)) != count {
		return nil, fmt.Errorf("%w: header declares %d records, payload has %d", ErrInvalidSnapshot, count, len(records))
	}
	return FromRecords(records)
}

// maxRawLen is the largest decoded size a stored payload of storedLen bytes
// can have under c.
func maxRawLen(c Compression, storedLen uint64) uint64 {
	switch c {
	case CompressionLZ4:
		return storedLen * lz4MaxRatio
	case CompressionZSTD:
		// Decoding grows the output as needed; the bound only keeps
		// the length representable.
		return math.MaxInt
	default:
		return storedLen
	}
}

type snapshotReader struct {
	buf   []byte
	pos   int
	short bool
}

func (r *snapshotReader) next(n int) []byte {
	if r.short || n < 0 || r.pos+n > len(r.buf) {
		r.short = true
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *snapshotReader) u8() byte {
	if b := r.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *snapshotReader) u32() uint32 {
	if b := r.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *snapshotReader) u64() uint64 {
	if b := r.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// Save writes a snapshot to path atomically (temp file, fsync, rename).
func Save(c *Catalog, path string, opts ...SaveOption) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("catalog: save %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err = Encode(w, c, opts...); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	return c, nil
}

// Write stores a snapshot of c under name.
func Write(ctx context.Context, bs blobstore.BlobStore, name string, c *Catalog, opts ...SaveOption) error {
	var buf bytes.Buffer
	if err := Encode(&buf, c, opts...); err != nil {
		return err
	}
	return bs.Put(ctx, name, buf.Bytes())
}

// Read loads the snapshot stored under name.
func Read(ctx context.Context, bs blobstore.BlobStore, name string) (*Catalog, error) {
	data, err := blobstore.Get(ctx, bs, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", name, err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", name, err)
	}
	return c, nil
}
