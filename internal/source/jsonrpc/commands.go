package jsonrpc

import (
	"context"
)

// Write commands are fire-and-forget: a nil return means the node accepted
// the transaction for submission, nothing more. Confirmation happens out of
// band; the read path notices the write once count()/getById reflect it.

// CreatePost submits a new post whose body lives under contentRef.
func (c *Client) CreatePost(ctx context.Context, contentRef string) error {
	return c.call(ctx, c.method("create"), []string{contentRef}, nil)
}

// SendMessage submits a direct message to another account.
func (c *Client) SendMessage(ctx context.Context, to, contentRef string) error {
	return c.call(ctx, c.method("send"), []string{to, contentRef}, nil)
}

// Like increments a record's like counter.
func (c *Client) Like(ctx context.Context, id int64) error {
	return c.call(ctx, c.method("like"), []int64{id}, nil)
}

// Unlike reverts a previous like.
func (c *Client) Unlike(ctx context.Context, id int64) error {
	return c.call(ctx, c.method("unlike"), []int64{id}, nil)
}

// Follow subscribes the caller to an account.
func (c *Client) Follow(ctx context.Context, account string) error {
	return c.call(ctx, c.method("follow"), []string{account}, nil)
}

// Unfollow removes a subscription.
func (c *Client) Unfollow(ctx context.Context, account string) error {
	return c.call(ctx, c.method("unfollow"), []string{account}, nil)
}

// MarkRead sets a message's read flag.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.call(ctx, c.method("markRead"), []int64{id}, nil)
}

// Edit replaces a record's content ref, preserving its identity.
func (c *Client) Edit(ctx context.Context, id int64, contentRef string) error {
	return c.call(ctx, c.method("edit"), []any{id, contentRef}, nil)
}

// Delete sets a record's tombstone. There is no undelete.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.call(ctx, c.method("delete"), []int64{id}, nil)
}
