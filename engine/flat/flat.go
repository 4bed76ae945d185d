// Package flat provides the reference brute-force index engine.
//
// Vectors live in a flat slot-major arena. Removal detaches a slot from the
// live set instead of rewriting the arena, so the searchable count and the
// storage size diverge until a dense save compacts the file. Caller-facing
// positions are live ranks: removing position i shifts every later position
// down by one without touching storage.
package flat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/faceindex/distance"
	"github.com/hupe1980/faceindex/engine"
	"github.com/hupe1980/faceindex/internal/mmap"
	"github.com/hupe1980/faceindex/internal/queue"
	"github.com/hupe1980/faceindex/persistence"
)

// Compile-time checks against the engine capability contract.
var (
	_ engine.Engine       = (*Engine)(nil)
	_ engine.Builder      = (*Builder)(nil)
	_ engine.MutableIndex = (*Index)(nil)
)

// ErrReadOnly is returned when a mutation reaches an index loaded from the
// dense format. The layer above never exposes mutation on dense indexes;
// this guard catches direct engine misuse.
var ErrReadOnly = errors.New("flat: index is read-only")

// Options contains configuration options for the flat engine.
type Options struct {
	// Dimension is the fixed vector dimensionality. 0 binds the dimension
	// to the first appended vector.
	Dimension int

	// Normalize enables L2 normalization of stored vectors and queries.
	// Face descriptors are compared on the unit sphere, so this is on by
	// default; distances then lie in [0, 4].
	Normalize bool

	// Compression selects the payload compression of the dynamic format.
	// The dense format is always stored raw so it can be memory-mapped.
	Compression persistence.CompressionType

	// Parallelism is the number of goroutines used for the search scan.
	// 0 uses GOMAXPROCS.
	Parallelism int

	// ParallelThreshold is the minimum number of live vectors before the
	// scan fans out.
	ParallelThreshold int
}

// DefaultOptions contains the default configuration of the flat engine.
var DefaultOptions = Options{
	Normalize:         true,
	Compression:       persistence.CompressionZSTD,
	ParallelThreshold: 4096,
}

// Engine creates builders and loads persisted flat indexes.
type Engine struct {
	opts Options
}

// New creates a flat engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{opts: opts}
}

// NewBuilder creates an empty accumulation builder.
func (e *Engine) NewBuilder() engine.Builder {
	return &Builder{
		opts: e.opts,
		dim:  e.opts.Dimension,
	}
}

// Builder accumulates vectors in a flat arena prior to compilation.
type Builder struct {
	opts       Options
	dim        int
	arena      []float32
	count      int
	annotation uint32
}

// prepare validates vec against the bound dimension (binding it on first
// use) and returns the vector to store.
func prepare(vec []float32, dim *int, normalize bool) ([]float32, error) {
	if len(vec) == 0 {
		return nil, engine.ErrEmptyVector
	}
	if *dim == 0 {
		*dim = len(vec)
	} else if len(vec) != *dim {
		return nil, &engine.ErrDimensionMismatch{Expected: *dim, Actual: len(vec)}
	}
	if normalize {
		norm, ok := distance.NormalizeL2Copy(vec)
		if !ok {
			return nil, fmt.Errorf("%w: zero norm", engine.ErrEmptyVector)
		}
		return norm, nil
	}
	return vec, nil
}

// Append adds one vector to the accumulation buffer.
func (b *Builder) Append(vec []float32) error {
	v, err := prepare(vec, &b.dim, b.opts.Normalize)
	if err != nil {
		return err
	}
	b.arena = append(b.arena, v...)
	b.count++
	return nil
}

// AppendBatch adds all vectors or none of them. The whole batch is
// validated against the (prospective) dimension before storage changes.
func (b *Builder) AppendBatch(vecs [][]float32) error {
	if len(vecs) == 0 {
		return nil
	}

	dim := b.dim
	prepared := make([][]float32, len(vecs))
	for i, vec := range vecs {
		v, err := prepare(vec, &dim, b.opts.Normalize)
		if err != nil {
			return err
		}
		prepared[i] = v
	}

	b.dim = dim
	for _, v := range prepared {
		b.arena = append(b.arena, v...)
	}
	b.count += len(prepared)
	return nil
}

// VectorAt returns the vector stored at pos.
func (b *Builder) VectorAt(pos int) ([]float32, error) {
	if pos < 0 || pos >= b.count {
		return nil, &engine.ErrPositionOutOfRange{Position: pos, Count: b.count}
	}
	return b.arena[pos*b.dim : (pos+1)*b.dim : (pos+1)*b.dim], nil
}

// RemoveAt removes the vector at pos; later positions shift down by one.
func (b *Builder) RemoveAt(pos int) error {
	if pos < 0 || pos >= b.count {
		return &engine.ErrPositionOutOfRange{Position: pos, Count: b.count}
	}
	copy(b.arena[pos*b.dim:], b.arena[(pos+1)*b.dim:])
	b.arena = b.arena[:(b.count-1)*b.dim]
	b.count--
	return nil
}

// Count returns the number of vectors currently accumulated.
func (b *Builder) Count() int { return b.count }

// SetAnnotation stores the opaque value carried by built indexes.
func (b *Builder) SetAnnotation(v uint32) { b.annotation = v }

// Build compiles the accumulated vectors into a new mutable index.
// The builder keeps its contents; the index owns an independent copy.
func (b *Builder) Build() (engine.MutableIndex, error) {
	idx := &Index{
		opts:       b.opts,
		dim:        b.dim,
		arena:      slices.Clone(b.arena),
		slots:      b.count,
		live:       roaring.New(),
		annotation: b.annotation,
	}
	idx.live.AddRange(0, uint64(b.count))
	return idx, nil
}

// Index is a compiled flat index.
type Index struct {
	opts       Options
	dim        int
	arena      []float32       // slot-major storage, including removed slots
	slots      int             // storage slots in the arena
	live       *roaring.Bitmap // slots visible to search
	annotation uint32
	readOnly   bool      // set for dense-loaded indexes
	backing    io.Closer // mmap backing the arena, nil for in-memory
}

// Count returns the number of vectors visible to search.
func (x *Index) Count() int { return int(x.live.GetCardinality()) }

// BufSize returns the number of storage slots, including removed ones.
func (x *Index) BufSize() int { return x.slots }

// Annotation returns the opaque value persisted with the index.
func (x *Index) Annotation() uint32 { return x.annotation }

// SetAnnotation updates the opaque annotation value.
func (x *Index) SetAnnotation(v uint32) { x.annotation = v }

// Close releases the backing mapping, if any.
func (x *Index) Close() error {
	if x.backing != nil {
		err := x.backing.Close()
		x.backing = nil
		x.arena = nil
		return err
	}
	return nil
}

// slotFor resolves a caller-facing position (live rank) to a storage slot.
func (x *Index) slotFor(pos int) (uint32, error) {
	count := x.Count()
	if pos < 0 || pos >= count {
		return 0, &engine.ErrPositionOutOfRange{Position: pos, Count: count}
	}
	slot, err := x.live.Select(uint32(pos))
	if err != nil {
		return 0, &engine.ErrPositionOutOfRange{Position: pos, Count: count}
	}
	return slot, nil
}

// VectorAt returns the vector stored at pos.
func (x *Index) VectorAt(pos int) ([]float32, error) {
	slot, err := x.slotFor(pos)
	if err != nil {
		return nil, err
	}
	off := int(slot) * x.dim
	return x.arena[off : off+x.dim : off+x.dim], nil
}

// Append adds one vector to the index.
func (x *Index) Append(vec []float32) error {
	if x.readOnly {
		return ErrReadOnly
	}
	v, err := prepare(vec, &x.dim, x.opts.Normalize)
	if err != nil {
		return err
	}
	x.arena = append(x.arena, v...)
	x.live.Add(uint32(x.slots))
	x.slots++
	return nil
}

// AppendBatch adds all vectors or none of them.
func (x *Index) AppendBatch(vecs [][]float32) error {
	if x.readOnly {
		return ErrReadOnly
	}
	if len(vecs) == 0 {
		return nil
	}

	dim := x.dim
	prepared := make([][]float32, len(vecs))
	for i, vec := range vecs {
		v, err := prepare(vec, &dim, x.opts.Normalize)
		if err != nil {
			return err
		}
		prepared[i] = v
	}

	x.dim = dim
	for _, v := range prepared {
		x.arena = append(x.arena, v...)
		x.live.Add(uint32(x.slots))
		x.slots++
	}
	return nil
}

// RemoveAt detaches the vector at pos from the live set; later positions
// shift down by one. Storage is reclaimed on the next dense save.
func (x *Index) RemoveAt(pos int) error {
	if x.readOnly {
		return ErrReadOnly
	}
	slot, err := x.slotFor(pos)
	if err != nil {
		return err
	}
	x.live.Remove(slot)
	return nil
}

// Search returns up to k hits ordered by ascending distance, ties broken by
// ascending position.
func (x *Index) Search(vec []float32, k int) ([]engine.SearchResult, error) {
	if k < 1 {
		return nil, engine.ErrInvalidK
	}

	n := x.Count()
	if n == 0 {
		return nil, nil
	}

	if len(vec) != x.dim {
		return nil, &engine.ErrDimensionMismatch{Expected: x.dim, Actual: len(vec)}
	}

	q := vec
	if x.opts.Normalize {
		norm, ok := distance.NormalizeL2Copy(vec)
		if !ok {
			return nil, fmt.Errorf("%w: zero norm query", engine.ErrEmptyVector)
		}
		q = norm
	}

	if k > n {
		k = n
	}

	liveSlots := x.live.ToArray() // ascending, so array index == position

	parallelism := x.opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	var top *queue.TopK
	if parallelism > 1 && n >= x.opts.ParallelThreshold {
		top = x.scanParallel(q, k, liveSlots, parallelism)
	} else {
		top = x.scan(q, k, liveSlots, 0)
	}

	items := top.Drain()
	results := make([]engine.SearchResult, len(items))
	for i, item := range items {
		results[i] = engine.SearchResult{
			Position: int(item.Slot),
			Distance: item.Distance,
		}
	}
	return results, nil
}

// scan computes distances for a chunk of live slots. Item.Slot carries the
// caller-facing position (base + chunk offset), so tie order is positional.
func (x *Index) scan(q []float32, k int, chunk []uint32, base int) *queue.TopK {
	top := queue.NewTopK(k)
	for i, slot := range chunk {
		off := int(slot) * x.dim
		d := distance.SquaredL2(q, x.arena[off:off+x.dim])
		if top.Full() && d >= top.Worst() {
			continue
		}
		top.Push(queue.Item{Slot: uint32(base + i), Distance: d})
	}
	return top
}

func (x *Index) scanParallel(q []float32, k int, liveSlots []uint32, parallelism int) *queue.TopK {
	n := len(liveSlots)
	chunkSize := (n + parallelism - 1) / parallelism

	partials := make([]*queue.TopK, 0, parallelism)
	var g errgroup.Group
	for base := 0; base < n; base += chunkSize {
		end := min(base+chunkSize, n)
		part := queue.NewTopK(k)
		partials = append(partials, part)

		g.Go(func() error {
			*part = *x.scan(q, k, liveSlots[base:end], base)
			return nil
		})
	}
	_ = g.Wait() // scans cannot fail

	top := queue.NewTopK(k)
	for _, part := range partials {
		for _, item := range part.Drain() {
			top.Push(item)
		}
	}
	return top
}

// SaveDynamic writes the index in the mutable on-disk format: the full
// arena (removed slots included) plus the serialized live set, compressed
// per Options.Compression.
func (x *Index) SaveDynamic(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bmBytes, err := x.live.ToBytes()
	if err != nil {
		return fmt.Errorf("flat: serialize live set: %w", err)
	}

	var raw bytes.Buffer
	raw.Grow(len(x.arena)*4 + len(bmBytes))
	raw.Write(persistence.Float32sToBytes(x.arena))
	raw.Write(bmBytes)

	stored, ctyp, err := persistence.Compress(raw.Bytes(), x.opts.Compression)
	if err != nil {
		return err
	}

	h := persistence.FileHeader{
		IndexType:   persistence.IndexTypeDynamic,
		Compression: ctyp,
		Dimension:   uint32(x.dim),
		SlotCount:   uint64(x.slots),
		LiveCount:   uint64(x.Count()),
		Annotation:  x.annotation,
		Checksum:    persistence.Checksum(stored),
		PayloadSize: uint64(len(stored)),
		RawSize:     uint64(raw.Len()),
	}
	if err := persistence.WriteHeader(w, &h); err != nil {
		return err
	}
	_, err = w.Write(stored)
	return err
}

// SaveDense writes the index in the compact read-only format: live vectors
// only, in position order, raw so the file can be memory-mapped.
func (x *Index) SaveDense(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := x.Count()
	payload := make([]float32, 0, n*x.dim)
	for _, slot := range x.live.ToArray() {
		off := int(slot) * x.dim
		payload = append(payload, x.arena[off:off+x.dim]...)
	}
	stored := persistence.Float32sToBytes(payload)

	h := persistence.FileHeader{
		IndexType:   persistence.IndexTypeDense,
		Compression: persistence.CompressionNone,
		Dimension:   uint32(x.dim),
		SlotCount:   uint64(n),
		LiveCount:   uint64(n),
		Annotation:  x.annotation,
		Checksum:    persistence.Checksum(stored),
		PayloadSize: uint64(len(stored)),
		RawSize:     uint64(len(stored)),
	}
	if err := persistence.WriteHeader(w, &h); err != nil {
		return err
	}
	_, err := w.Write(stored)
	return err
}

// LoadDynamic reads an index persisted in the dynamic format.
func (e *Engine) LoadDynamic(ctx context.Context, r io.Reader) (engine.MutableIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := persistence.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if h.IndexType != persistence.IndexTypeDynamic {
		return nil, fmt.Errorf("%w: file holds a dense index", persistence.ErrIndexTypeMismatch)
	}

	stored := make([]byte, h.PayloadSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, persistence.ErrTruncated
	}
	if persistence.Checksum(stored) != h.Checksum {
		return nil, persistence.ErrChecksumMismatch
	}

	raw, err := persistence.Decompress(stored, h.Compression, int(h.RawSize))
	if err != nil {
		return nil, err
	}

	arenaSize := int(h.SlotCount) * int(h.Dimension) * 4
	if len(raw) < arenaSize {
		return nil, persistence.ErrTruncated
	}
	arena, err := persistence.BytesToFloat32s(raw[:arenaSize])
	if err != nil {
		return nil, err
	}

	live := roaring.New()
	if err := live.UnmarshalBinary(raw[arenaSize:]); err != nil {
		return nil, fmt.Errorf("flat: decode live set: %w", err)
	}
	if live.GetCardinality() != h.LiveCount {
		return nil, fmt.Errorf("flat: live set cardinality %d does not match header %d",
			live.GetCardinality(), h.LiveCount)
	}
	if !live.IsEmpty() && uint64(live.Maximum()) >= h.SlotCount {
		return nil, fmt.Errorf("flat: live slot %d beyond slot count %d", live.Maximum(), h.SlotCount)
	}

	return &Index{
		opts:       e.opts,
		dim:        int(h.Dimension),
		arena:      arena,
		slots:      int(h.SlotCount),
		live:       live,
		annotation: h.Annotation,
	}, nil
}

// LoadDense maps an index persisted in the dense format from a file.
// The vectors stay backed by the mapping until the index is closed.
func (e *Engine) LoadDense(ctx context.Context, path string) (engine.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	idx, err := e.loadDenseData(m.Data, m)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return idx, nil
}

// LoadDenseBytes opens a dense index over a caller-owned buffer.
func (e *Engine) LoadDenseBytes(data []byte) (engine.Index, error) {
	return e.loadDenseData(data, nil)
}

func (e *Engine) loadDenseData(data []byte, backing io.Closer) (engine.Index, error) {
	h, err := persistence.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.IndexType != persistence.IndexTypeDense {
		return nil, fmt.Errorf("%w: file holds a dynamic index", persistence.ErrIndexTypeMismatch)
	}
	if h.Compression != persistence.CompressionNone {
		return nil, fmt.Errorf("flat: dense payload must be uncompressed, got %s", h.Compression)
	}

	payload := data[persistence.HeaderSize:]
	if uint64(len(payload)) < h.PayloadSize {
		return nil, persistence.ErrTruncated
	}
	payload = payload[:h.PayloadSize]
	if persistence.Checksum(payload) != h.Checksum {
		return nil, persistence.ErrChecksumMismatch
	}

	arena, err := persistence.BytesToFloat32s(payload)
	if err != nil {
		return nil, err
	}
	if uint64(len(arena)) != h.SlotCount*uint64(h.Dimension) {
		return nil, persistence.ErrTruncated
	}

	live := roaring.New()
	live.AddRange(0, h.SlotCount)

	return &Index{
		opts:       e.opts,
		dim:        int(h.Dimension),
		arena:      arena,
		slots:      int(h.SlotCount),
		live:       live,
		annotation: h.Annotation,
		readOnly:   true,
		backing:    backing,
	}, nil
}
