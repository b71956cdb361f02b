package metadata

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"nandctl/nanderr"
	"nandctl/nand"
)

// ReservedBlocks maps a role to its physical block number, spec.md §3's
// {metadata, bad_block_table, wear_leveling, firmware, log} mapping.
type ReservedBlocks struct {
	Metadata       int
	BadBlockTable  int
	WearLeveling   int
	Firmware       int
	Log            int
}

// Backups optionally names a fallback physical block per role. A zero
// value (role absent from the map) means "no backup configured".
type Backups map[string]int

// Store persists the bad-block table, wear-level table, and user records
// into their reserved blocks.
type Store struct {
	mu        sync.Mutex
	transport nand.Transport
	geometry  nand.Geometry
	reserved  ReservedBlocks
	backups   Backups
	logger    *zap.Logger
	dirty     atomic.Bool
}

// NewStore constructs a Store. logger may be zap.NewNop() in tests.
func NewStore(transport nand.Transport, geometry nand.Geometry, reserved ReservedBlocks, backups Backups, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{transport: transport, geometry: geometry, reserved: reserved, backups: backups, logger: logger}
}

// MarkDirty flags that the in-memory tables have changed since the last
// flush, per spec.md §9's "opportunistic" persistence.
func (s *Store) MarkDirty() { s.dirty.Store(true) }

// Dirty reports whether a flush is pending.
func (s *Store) Dirty() bool { return s.dirty.Load() }

// writeBlockPages erases block then writes each chunk in order to
// successive pages. Returns the first error encountered, if any.
func (s *Store) writeBlockPages(ctx context.Context, block int, chunks [][]byte) error {
	if err := s.transport.EraseBlock(ctx, block); err != nil {
		return errors.Wrap(err, "metadata: erase reserved block")
	}
	for page, chunk := range chunks {
		if err := s.transport.WritePage(ctx, block, page, chunk); err != nil {
			return errors.Wrapf(err, "metadata: write reserved block %d page %d", block, page)
		}
	}
	return nil
}

// saveWithBackup writes chunks to primaryBlock, falling back to
// backupRole's block on failure. Both failing is logged, not returned —
// per spec.md §4.9, save failures "are logged and surfaced only at
// shutdown" and must not abort the triggering operation.
func (s *Store) saveWithBackup(ctx context.Context, backupRole string, primaryBlock int, chunks [][]byte) {
	if err := s.writeBlockPages(ctx, primaryBlock, chunks); err != nil {
		s.logger.Warn("metadata: primary save failed, trying backup",
			zap.Int("block", primaryBlock), zap.Error(err))
		backupBlock, ok := s.backups[backupRole]
		if !ok {
			s.logger.Error("metadata: no backup configured, record not persisted", zap.String("role", backupRole))
			return
		}
		if err := s.writeBlockPages(ctx, backupBlock, chunks); err != nil {
			s.logger.Error("metadata: backup save also failed, record not persisted",
				zap.Int("block", backupBlock), zap.Error(err))
		}
	}
}

// SaveBadBlocks persists the bad-block bitmap as a BadBlockRecord.
func (s *Store) SaveBadBlocks(ctx context.Context, bad []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blocks []uint32
	for b, isBad := range bad {
		if isBad {
			blocks = append(blocks, uint32(b))
		}
	}
	rec := BadBlockRecord{Blocks: blocks}
	chunks := ChunkPages(rec.MarshalBinary(), s.geometry.PageSize)
	s.saveWithBackup(ctx, "bad_block_table", s.reserved.BadBlockTable, chunks)
}

// LoadBadBlocks reads the bad-block table for a device of numBlocks
// blocks. On a signature/version mismatch or read failure, it falls back
// to a factory scan over non-reserved blocks.
func (s *Store) LoadBadBlocks(ctx context.Context, numBlocks int, reservedSet map[int]bool) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.readRecordPages(ctx, s.reserved.BadBlockTable)
	if err == nil {
		if rec, ok := UnmarshalBadBlockRecord(buf); ok {
			out := make([]bool, numBlocks)
			for _, b := range rec.Blocks {
				if int(b) < numBlocks {
					out[b] = true
				}
			}
			return out, nil
		}
	}
	s.logger.Warn("metadata: bad-block table unreadable or invalid, running factory scan", zap.Error(err))
	return s.factoryBadBlockScan(ctx, numBlocks, reservedSet)
}

// factoryBadBlockScan walks every non-reserved block, treating a
// non-0xFF first OOB byte of the first or last page (or a read error) as
// bad, per spec.md §4.9.
func (s *Store) factoryBadBlockScan(ctx context.Context, numBlocks int, reservedSet map[int]bool) ([]bool, error) {
	out := make([]bool, numBlocks)
	for b := 0; b < numBlocks; b++ {
		if reservedSet[b] {
			continue
		}
		if s.blockLooksBad(ctx, b) {
			out[b] = true
		}
	}
	return out, nil
}

func (s *Store) blockLooksBad(ctx context.Context, block int) bool {
	first, err := s.transport.ReadPage(ctx, block, 0)
	if err != nil {
		return true
	}
	last, err := s.transport.ReadPage(ctx, block, s.geometry.PagesPerBlock-1)
	if err != nil {
		return true
	}
	return oobMarksBad(first, s.geometry.PageSize) || oobMarksBad(last, s.geometry.PageSize)
}

func oobMarksBad(page []byte, pageSize int) bool {
	if len(page) <= pageSize {
		return false
	}
	return page[pageSize] != 0xFF
}

// SaveWearLevels persists the wear-level table.
func (s *Store) SaveWearLevels(ctx context.Context, counts []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairs := make([]WearPair, len(counts))
	for b, c := range counts {
		pairs[b] = WearPair{Block: uint32(b), EraseCount: c}
	}
	rec := WearLevelRecord{Pairs: pairs}
	chunks := ChunkPages(rec.MarshalBinary(), s.geometry.PageSize)
	s.saveWithBackup(ctx, "wear_leveling", s.reserved.WearLeveling, chunks)
}

// LoadWearLevels reads the wear-level table for numBlocks blocks,
// returning zeroed counters (per spec.md §4.9) if the record is missing
// or invalid.
func (s *Store) LoadWearLevels(ctx context.Context, numBlocks int) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.readRecordPages(ctx, s.reserved.WearLeveling)
	if err == nil {
		if rec, ok := UnmarshalWearLevelRecord(buf, numBlocks); ok {
			out := make([]uint32, numBlocks)
			for _, p := range rec.Pairs {
				if int(p.Block) < numBlocks {
					out[p.Block] = p.EraseCount
				}
			}
			return out
		}
	}
	s.logger.Warn("metadata: wear table unreadable or invalid, using zeroed counters", zap.Error(err))
	return make([]uint32, numBlocks)
}

// readRecordPages concatenates the data area of every page of block,
// stopping early only at the first page after page 0 that fails to read.
// It is a best-effort reader: bad-block/wear records are small and
// usually fit in a handful of pages.
func (s *Store) readRecordPages(ctx context.Context, block int) ([]byte, error) {
	var buf []byte
	for page := 0; page < s.geometry.PagesPerBlock; page++ {
		data, err := s.transport.ReadPage(ctx, block, page)
		if err != nil {
			if page == 0 {
				return nil, errors.Wrap(err, "metadata: read reserved block")
			}
			break
		}
		if len(data) > s.geometry.PageSize {
			data = data[:s.geometry.PageSize]
		}
		buf = append(buf, data...)
	}
	if len(buf) == 0 {
		return nil, nanderr.New(nanderr.Corrupt, "metadata: reserved block empty")
	}
	return buf, nil
}

// SaveUserRecord writes a user-defined record to the last page of block.
func (s *Store) SaveUserRecord(ctx context.Context, block int, recordType uint32, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header := Header{Signature: Signature, Version: Version, Type: recordType, Size: uint32(len(payload))}
	body := append(header.MarshalBinary(), payload...)
	if len(body) > s.geometry.PageSize {
		return nanderr.Errorf(nanderr.InputTooLarge, "metadata: user record of %d bytes exceeds page size %d", len(body), s.geometry.PageSize)
	}
	page := PadToPage(body, s.geometry.PageSize)

	lastPage := s.geometry.PagesPerBlock - 1
	if err := s.transport.WritePage(ctx, block, lastPage, page); err != nil {
		return errors.Wrap(err, "metadata: write user record")
	}
	return nil
}

// LoadUserRecord reads the last page of block and validates its header.
func (s *Store) LoadUserRecord(ctx context.Context, block int) (Header, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastPage := s.geometry.PagesPerBlock - 1
	data, err := s.transport.ReadPage(ctx, block, lastPage)
	if err != nil {
		return Header{}, nil, errors.Wrap(err, "metadata: read user record")
	}
	header, ok := UnmarshalHeader(data)
	if !ok || !header.Valid() {
		return Header{}, nil, nanderr.New(nanderr.Corrupt, "metadata: user record signature/version mismatch")
	}
	end := HeaderSize + int(header.Size)
	if end > len(data) {
		return Header{}, nil, nanderr.New(nanderr.Corrupt, "metadata: user record size exceeds page")
	}
	return header, data[HeaderSize:end], nil
}

// SaveFileRecord marshals rec as JSON and writes it as a type=1 user
// record into the metadata reserved block, per spec.md §4.10's File I/O
// paragraph.
func (s *Store) SaveFileRecord(ctx context.Context, rec FileRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "metadata: marshal file record")
	}
	return s.SaveUserRecord(ctx, s.reserved.Metadata, TypeJSON, payload)
}

// LoadFileRecord reads back the FileRecord saved by SaveFileRecord.
func (s *Store) LoadFileRecord(ctx context.Context) (FileRecord, error) {
	header, payload, err := s.LoadUserRecord(ctx, s.reserved.Metadata)
	if err != nil {
		return FileRecord{}, err
	}
	if header.Type != TypeJSON {
		return FileRecord{}, nanderr.New(nanderr.Corrupt, "metadata: file record has unexpected type")
	}
	var rec FileRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return FileRecord{}, nanderr.Errorf(nanderr.Corrupt, "metadata: unmarshal file record: %v", err)
	}
	return rec, nil
}

// Flush saves the bad-block and wear-level tables if dirty, clearing the
// dirty flag afterward. Intended for Controller.Shutdown, matching
// spec.md §9's "a small dirty flag and a background flush keep shutdown
// cheap".
func (s *Store) Flush(ctx context.Context, bad []bool, wear []uint32) {
	if !s.dirty.CompareAndSwap(true, false) {
		return
	}
	s.SaveBadBlocks(ctx, bad)
	s.SaveWearLevels(ctx, wear)
}
