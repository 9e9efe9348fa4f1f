// Package zone implements the tagged, coalescing freelist allocator
// described by the core memory-management subsystem: a growable set of
// large segments, one address-ordered doubly linked block list per zone,
// and up to four segregated free lists selected by size class.
//
// Blocks are addressed the way the design calls for: a block header is a
// fixed-size, pointer-free record (only uintptr/int32 fields) overlaid in
// place on a []byte a Zone keeps alive for its entire lifetime, and
// next/prev links are absolute addresses recovered with unsafe.Pointer at
// the moment of use rather than retained Go pointers. Because the byte
// slices backing every segment are pinned by the Zone for as long as it
// exists and Go's collector never moves heap objects, this is the same
// "single mutable owner with indexed access" shape the spec's
// re-architecture notes call for, without needing to serialize offsets.
package zone

import (
	"unsafe"

	"github.com/orizon-lang/memcore/internal/memdiag"
	"github.com/orizon-lang/memcore/internal/memsink"
	"github.com/orizon-lang/memcore/internal/sysmem"
)

// Tag labels every in-use block, enabling bulk reclamation by category.
type Tag int32

const (
	TagFree Tag = iota
	TagGeneral
	TagPack
	TagSearchPath
	TagSearchPack
	TagSearchDir
	TagBotlib
	TagRenderer
	TagClients
	TagSmall
	TagStatic
)

func (t Tag) String() string {
	switch t {
	case TagFree:
		return "FREE"
	case TagGeneral:
		return "GENERAL"
	case TagPack:
		return "PACK"
	case TagSearchPath:
		return "SEARCH_PATH"
	case TagSearchPack:
		return "SEARCH_PACK"
	case TagSearchDir:
		return "SEARCH_DIR"
	case TagBotlib:
		return "BOTLIB"
	case TagRenderer:
		return "RENDERER"
	case TagClients:
		return "CLIENTS"
	case TagSmall:
		return "SMALL"
	case TagStatic:
		return "STATIC"
	default:
		return "UNKNOWN"
	}
}

const (
	// zoneID is the trash/identity sentinel. Real blocks carry +zoneID;
	// segment separators carry -zoneID.
	zoneID int32 = 0x1d4a11

	// minFragmentFloor is the minimum remainder size (MINFRAGMENT) a
	// split must leave behind to bother creating a new free block.
	minFragmentFloor = 64

	// segmentGrowthChunk is the rounding unit for new segments beyond
	// the zone's initial segment.
	segmentGrowthChunk = 2 * 1024 * 1024

	// unboundedSentinel is what Available reports when multi-segment
	// growth is enabled — the spec flags this as a likely source of
	// client confusion (§9 Open Questions) but keeps it for parity.
	unboundedSentinel = 1 << 30
)

// wordSize is the platform pointer width; Zone returns payloads aligned
// to it (§5).
const wordSize = unsafe.Sizeof(uintptr(0))

// blockHeader is the in-band, pointer-free record immediately preceding
// every block's payload. All linkage is stored as absolute addresses
// (uintptr), never as Go pointers, so the memory it lives in never needs
// to be scanned by the garbage collector.
type blockHeader struct {
	next uintptr
	prev uintptr
	size uintptr
	tag  Tag
	id   int32
}

var headerSize = unsafe.Sizeof(blockHeader{})

// freeLinks overlays the first bytes of a FREE block's payload, placing
// it in exactly one segregated free list.
type freeLinks struct {
	prev uintptr
	next uintptr
}

var freeLinksSize = unsafe.Sizeof(freeLinks{})

// trashSentinelSize is the 4 trailing bytes every in-use block carries
// when the trash-sentinel toggle is enabled.
const trashSentinelSize = 4

func headerAt(addr uintptr) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(addr)) //nolint:govet
}

// freeLinksPtr reinterprets an address that already points at a freeLinks
// value — a free list sentinel, or a real block's payload.
func freeLinksPtr(addr uintptr) *freeLinks {
	return (*freeLinks)(unsafe.Pointer(addr)) //nolint:govet
}

// freeLinksAt returns the freeLinks overlay living in a real block's
// payload, given that block's header address.
func freeLinksAt(headerAddr uintptr) *freeLinks {
	return freeLinksPtr(payloadAddr(headerAddr))
}

func payloadAddr(headerAddr uintptr) uintptr {
	return headerAddr + headerSize
}

func headerAddrFromPayload(payload uintptr) uintptr {
	return payload - headerSize
}

func trashAddr(headerAddr uintptr, size uintptr) uintptr {
	return headerAddr + size - trashSentinelSize
}

func addrOfByte(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func alignUp(size uintptr) uintptr {
	return sysmem.AlignUp(size, wordSize)
}

// segment is one OS-backed region owned exclusively by a Zone.
type segment struct {
	region *sysmem.Region
	base   uintptr
}

// Config mirrors the teacher's functional-options allocator.Config: a
// struct of tunables plus Option setters, so compile-time toggles from
// spec §6.2 become overridable defaults instead of literal #ifdefs.
type Config struct {
	// EnableTrashSentinel writes/validates the trailing ZONEID on every
	// in-use block.
	EnableTrashSentinel bool

	// EnableStaticFastPath makes Free a no-op for TagStatic blocks
	// instead of running the normal free path.
	EnableStaticFastPath bool

	// EnableMultiSegmentGrowth allows the zone to grow by adding
	// segments when the free lists are exhausted. When false, running
	// out of free space is a fatal allocation failure (there is no
	// fallback segment to grow into).
	EnableMultiSegmentGrowth bool

	// ForwardSearch selects the default forward (next-pointer) free
	// list search direction (§4.1.2); false selects backward (prev).
	ForwardSearch bool

	// EnableTinySizeClass adds a fourth, smallest size class. The spec
	// ties this to the backward search configuration (TINY=64,
	// SMALL=128, MEDIUM=256) as opposed to the forward default
	// (SMALL=64, MEDIUM=128).
	EnableTinySizeClass bool

	// SmallClassLimit and MediumClassLimit are the upper bounds (in
	// bytes, after header+sentinel+alignment) of the small and medium
	// free list size classes. TinyClassLimit only applies when
	// EnableTinySizeClass is set.
	TinyClassLimit   uintptr
	SmallClassLimit  uintptr
	MediumClassLimit uintptr

	// diagRecorder backs WithDiagnostics; unexported since it's reached
	// only through the option, not set directly in a struct literal.
	diagRecorder *memdiag.Recorder
}

// Option configures a Config.
type Option func(*Config)

// WithTrashSentinel toggles the trailing ZONEID corruption check.
func WithTrashSentinel(enabled bool) Option {
	return func(c *Config) { c.EnableTrashSentinel = enabled }
}

// WithStaticFastPath toggles the STATIC no-op free fast path.
func WithStaticFastPath(enabled bool) Option {
	return func(c *Config) { c.EnableStaticFastPath = enabled }
}

// WithMultiSegmentGrowth toggles growing the zone with new segments.
func WithMultiSegmentGrowth(enabled bool) Option {
	return func(c *Config) { c.EnableMultiSegmentGrowth = enabled }
}

// WithBackwardSearch switches the free list search direction to
// backward and the default size classes to the TINY/SMALL/MEDIUM set.
func WithBackwardSearch() Option {
	return func(c *Config) {
		c.ForwardSearch = false
		c.EnableTinySizeClass = true
		c.TinyClassLimit = 64
		c.SmallClassLimit = 128
		c.MediumClassLimit = 256
	}
}

// WithDiagnostics attaches a recorder that AllocDebug reports labeled
// allocations to. Without it, AllocDebug behaves exactly like Alloc.
func WithDiagnostics(rec *memdiag.Recorder) Option {
	return func(c *Config) { c.diagRecorder = rec }
}

func defaultConfig() *Config {
	return &Config{
		EnableTrashSentinel:      true,
		EnableStaticFastPath:     true,
		EnableMultiSegmentGrowth: true,
		ForwardSearch:            true,
		EnableTinySizeClass:      false,
		SmallClassLimit:          64,
		MediumClassLimit:         128,
	}
}

// classCount is the number of segregated free lists the zone maintains
// (3 for the forward/default config, 4 when the tiny class is enabled).
func (c *Config) classCount() int {
	if c.EnableTinySizeClass {
		return 4
	}

	return 3
}

// Zone is one of the two process-wide allocators (main or small). It
// owns one or more segments and the address-ordered block list spanning
// them.
type Zone struct {
	name     string
	cfg      Config
	sink     memsink.Sink
	segments []*segment

	// blockListSentinel is the control-region record for the circular,
	// address-ordered list of every block across every segment — the
	// equivalent of the teacher's memzone_t.blocklist member. It is a
	// real blockHeader value, not a byte buffer, so &blockListSentinel
	// addresses it exactly like any in-band header.
	blockListSentinel blockHeader

	// freeListSentinels are the per-size-class circular free list
	// heads, embedded in the zone control structure per spec §3.1 and
	// laid out the way the teacher's freelist_tiny/small/medium/free
	// members are: bare two-link nodes, not full block headers.
	freeListSentinels [4]freeLinks

	used uintptr
	size uintptr

	// diag, when non-nil, receives a LevelInfo event (filed under
	// CategorySegmentGrowth) from AllocDebug carrying the caller-supplied
	// label — the Go shape of
	// the teacher's Z_TagMallocDebug, which stashed a file:line label
	// in each block for the zone debugger to print later instead of
	// tracking it out of band.
	diag *memdiag.Recorder
}

func (z *Zone) blockListHead() uintptr {
	return uintptr(unsafe.Pointer(&z.blockListSentinel))
}

// freeListHead returns the address of the freeLinks node anchoring the
// circular free list for the given size class.
func (z *Zone) freeListHead(class int) uintptr {
	return uintptr(unsafe.Pointer(&z.freeListSentinels[class]))
}

// classLimits returns the upper size bound for each class except the
// last (which is unbounded — the "large" catch-all).
func (z *Zone) classLimits() []uintptr {
	if z.cfg.EnableTinySizeClass {
		return []uintptr{z.cfg.TinyClassLimit, z.cfg.SmallClassLimit, z.cfg.MediumClassLimit}
	}

	return []uintptr{z.cfg.SmallClassLimit, z.cfg.MediumClassLimit}
}

// classFor returns the index of the smallest size class able to satisfy
// a request of the given total block size.
func (z *Zone) classFor(size uintptr) int {
	limits := z.classLimits()
	for i, limit := range limits {
		if size <= limit {
			return i
		}
	}

	return len(limits)
}

// minFragment is the smallest remainder worth splitting off as its own
// free block: enough room for a header plus free-list links, padded to
// word alignment, but never less than MINFRAGMENT.
func (z *Zone) minFragment() uintptr {
	need := headerSize + freeLinksSize
	if need < minFragmentFloor {
		need = minFragmentFloor
	}

	return alignUp(need)
}

// New formats a fresh zone over one initial segment of at least
// initialBytes, per zone_init (§4.1.1).
func New(name string, sink memsink.Sink, initialBytes uintptr, opts ...Option) (*Zone, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	z := &Zone{name: name, cfg: *cfg, sink: sink, diag: cfg.diagRecorder}

	// The block-list sentinel and every free-list sentinel start out
	// pointing at themselves: empty circular rings.
	z.blockListSentinel.next = z.blockListHead()
	z.blockListSentinel.prev = z.blockListHead()
	// Marked GENERAL and given the separator identity so a stray id/tag
	// scan during zone_check never mistakes the control node for a real
	// block, matching the teacher source's zone->blocklist setup.
	z.blockListSentinel.tag = TagGeneral
	z.blockListSentinel.id = -zoneID

	for i := range z.freeListSentinels {
		head := z.freeListHead(i)
		z.freeListSentinels[i].next = head
		z.freeListSentinels[i].prev = head
	}

	if err := z.addInitialSegment(initialBytes); err != nil {
		return nil, err
	}

	return z, nil
}

// addInitialSegment formats the zone's first segment as one giant FREE
// block with no separator (there is nothing to separate from yet).
func (z *Zone) addInitialSegment(bytes uintptr) error {
	region, err := sysmem.Acquire(bytes, wordSize)
	if err != nil {
		z.sink.Fatal(memsink.SegmentAllocFailed("zone_init:"+z.name, bytes))

		return err
	}

	seg := &segment{region: region, base: addrOfByte(region.Bytes())}
	z.segments = append(z.segments, seg)
	z.size = bytes

	blockAddr := seg.base
	h := headerAt(blockAddr)
	h.size = bytes
	h.tag = TagFree
	h.id = zoneID

	z.linkBlockBetween(z.blockListHead(), blockAddr, z.blockListHead())
	z.insertFree(blockAddr)

	return nil
}

// growSegment allocates a new segment at least large enough for
// needAtLeast bytes (rounded to the 2 MiB growth chunk), links it at the
// tail of the block list behind a separator, and returns the new giant
// free block's header address.
func (z *Zone) growSegment(needAtLeast uintptr) (uintptr, error) {
	if !z.cfg.EnableMultiSegmentGrowth {
		z.sink.Fatal(memsink.SegmentAllocFailed("zone_alloc:"+z.name, needAtLeast))

		return 0, errZoneFatal
	}

	segBytes := sysmem.AlignUp(needAtLeast, segmentGrowthChunk)
	allocBytes := segBytes + headerSize

	region, err := sysmem.Acquire(allocBytes, wordSize)
	if err != nil {
		z.sink.Fatal(memsink.SegmentAllocFailed("zone_alloc:"+z.name, allocBytes))

		return 0, err
	}

	seg := &segment{region: region, base: addrOfByte(region.Bytes())}
	z.segments = append(z.segments, seg)
	z.size += allocBytes
	z.used += headerSize

	sepAddr := seg.base
	sep := headerAt(sepAddr)
	sep.size = 0
	sep.tag = TagGeneral
	sep.id = -zoneID

	blockAddr := sepAddr + headerSize
	block := headerAt(blockAddr)
	block.size = segBytes
	block.tag = TagFree
	block.id = zoneID

	tail := z.blockListSentinel.prev

	z.linkBlockBetween(tail, sepAddr, z.blockListHead())
	z.linkBlockBetween(sepAddr, blockAddr, z.blockListHead())
	z.insertFree(blockAddr)

	return blockAddr, nil
}

// linkBlockBetween splices block into the address-ordered all-blocks
// list between prev and next (both header addresses; next is usually
// the block-list sentinel, meaning "append at the tail").
func (z *Zone) linkBlockBetween(prevAddr, blockAddr, nextAddr uintptr) {
	headerAt(prevAddr).next = blockAddr
	headerAt(nextAddr).prev = blockAddr
	headerAt(blockAddr).prev = prevAddr
	headerAt(blockAddr).next = nextAddr
}

// unlinkBlock removes block from the all-blocks list, leaving its own
// next/prev untouched (the caller is about to repurpose or discard it).
func (z *Zone) unlinkBlock(blockAddr uintptr) {
	b := headerAt(blockAddr)
	headerAt(b.prev).next = b.next
	headerAt(b.next).prev = b.prev
}

// insertFree splices block into the circular free list matching its
// current size, at the head of that list (so recently freed blocks are
// the first candidates an allocation searches, per the default forward
// direction in §4.1.2).
func (z *Zone) insertFree(blockAddr uintptr) {
	size := headerAt(blockAddr).size
	class := z.classFor(size)
	headAddr := z.freeListHead(class)

	fb := freeLinksAt(blockAddr)
	prevAddr := headAddr
	nextAddr := freeLinksPtr(prevAddr).next

	freeLinksPtr(prevAddr).next = payloadAddr(blockAddr)
	freeLinksPtr(nextAddr).prev = payloadAddr(blockAddr)
	fb.prev = prevAddr
	fb.next = nextAddr
}

// removeFree splices block out of whichever free list it currently
// occupies.
func (z *Zone) removeFree(blockAddr uintptr) {
	fb := freeLinksAt(blockAddr)
	freeLinksPtr(fb.prev).next = fb.next
	freeLinksPtr(fb.next).prev = fb.prev
}

var errZoneFatal = errZoneFatalSentinel{}

type errZoneFatalSentinel struct{}

func (errZoneFatalSentinel) Error() string { return "zone: fatal allocation failure" }
