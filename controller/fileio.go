package controller

import (
	"context"

	"github.com/pkg/errors"

	"nandctl/metadata"
	"nandctl/nanderr"
)

// SaveData writes data as a sequence of logical pages starting at
// logical block 0, page 0, chunked at payloadCapacity() rather than
// geometry.PageSize since ECC parity (and, if enabled, the compression
// indicator byte) both eat into the usable bytes per page. It records a
// metadata.FileRecord so LoadData can recover the exact byte length.
func (c *Controller) SaveData(ctx context.Context, name string, data []byte) error {
	chunkSize := c.payloadCapacity()
	if chunkSize <= 0 {
		return nanderr.New(nanderr.InputTooLarge, "controller: no usable payload capacity per page")
	}

	pagesPerBlock := c.geometry.PagesPerBlock
	logicalBlock, page := 0, 0
	pages := uint32(0)

	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := c.WritePage(ctx, logicalBlock, page, data[offset:end]); err != nil {
			return errors.Wrapf(err, "controller: save data %q chunk at logical block %d page %d", name, logicalBlock, page)
		}
		pages++
		page++
		if page >= pagesPerBlock {
			page = 0
			logicalBlock++
		}
	}
	if len(data) == 0 {
		// Still reserve one empty chunk so LoadData has a page to read.
		if err := c.WritePage(ctx, 0, 0, nil); err != nil {
			return errors.Wrap(err, "controller: save empty data")
		}
		pages = 1
	}

	rec := metadata.FileRecord{Name: name, Size: uint64(len(data)), Pages: pages, Timestamp: timeNow()}
	return c.metaStore.SaveFileRecord(ctx, rec)
}

// LoadData reads back the file written by the most recent SaveData call,
// reassembling it from the recorded page count and original byte size.
func (c *Controller) LoadData(ctx context.Context) ([]byte, error) {
	rec, err := c.metaStore.LoadFileRecord(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "controller: load file record")
	}

	pagesPerBlock := c.geometry.PagesPerBlock
	logicalBlock, page := 0, 0
	out := make([]byte, 0, rec.Size)

	for i := uint32(0); i < rec.Pages; i++ {
		chunk, err := c.ReadPage(ctx, logicalBlock, page)
		if err != nil {
			return nil, errors.Wrapf(err, "controller: load data chunk at logical block %d page %d", logicalBlock, page)
		}
		out = append(out, chunk...)
		page++
		if page >= pagesPerBlock {
			page = 0
			logicalBlock++
		}
	}
	if uint64(len(out)) > rec.Size {
		out = out[:rec.Size]
	}
	return out, nil
}
