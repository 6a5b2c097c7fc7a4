package siyuan

import "context"

// InsertAnchor positions an inserted block. At least one field should be
// set; empty fields are left out of the request.
type InsertAnchor struct {
	PreviousID string
	NextID     string
	ParentID   string
}

// AppendBlock adds content as the last child of parentID.
func (c *Client) AppendBlock(ctx context.Context, parentID, data string, dataType DataType) ([]Transaction, error) {
	return call[[]Transaction](ctx, c, "/api/block/appendBlock", Payload{
		"parentID": parentID,
		"data":     data,
		"dataType": string(dataType.orDefault()),
	})
}

// PrependBlock adds content as the first child of parentID.
func (c *Client) PrependBlock(ctx context.Context, parentID, data string, dataType DataType) ([]Transaction, error) {
	return call[[]Transaction](ctx, c, "/api/block/prependBlock", Payload{
		"parentID": parentID,
		"data":     data,
		"dataType": string(dataType.orDefault()),
	})
}

// InsertBlock inserts content next to a sibling or under a parent.
func (c *Client) InsertBlock(ctx context.Context, data string, dataType DataType, at InsertAnchor) ([]Transaction, error) {
	payload := Payload{
		"data":     data,
		"dataType": string(dataType.orDefault()),
	}
	if at.PreviousID != "" {
		payload["previousID"] = at.PreviousID
	}
	if at.NextID != "" {
		payload["nextID"] = at.NextID
	}
	if at.ParentID != "" {
		payload["parentID"] = at.ParentID
	}
	return call[[]Transaction](ctx, c, "/api/block/insertBlock", payload)
}

// UpdateBlock replaces the full content of a block.
func (c *Client) UpdateBlock(ctx context.Context, id, data string, dataType DataType) ([]Transaction, error) {
	return call[[]Transaction](ctx, c, "/api/block/updateBlock", Payload{
		"id":       id,
		"data":     data,
		"dataType": string(dataType.orDefault()),
	})
}

// DeleteBlock removes a block.
func (c *Client) DeleteBlock(ctx context.Context, id string) ([]Transaction, error) {
	return call[[]Transaction](ctx, c, "/api/block/deleteBlock", Payload{"id": id})
}

// GetBlockKramdown returns the kramdown source of a block.
func (c *Client) GetBlockKramdown(ctx context.Context, id string) (BlockKramdown, error) {
	return call[BlockKramdown](ctx, c, "/api/block/getBlockKramdown", Payload{"id": id})
}

// GetChildBlocks lists the direct children of a block.
func (c *Client) GetChildBlocks(ctx context.Context, id string) ([]ChildBlock, error) {
	return call[[]ChildBlock](ctx, c, "/api/block/getChildBlocks", Payload{"id": id})
}
