package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// VerifyToken returns the account owning the token (GET /users/me).
func (c *Client) VerifyToken(ctx context.Context) (*User, error) {
	body, err := c.do(ctx, request{op: "verify token", method: http.MethodGet, path: "/users/me", retry: true})
	if err != nil {
		return nil, err
	}
	user, err := decodeData[User](body)
	if err != nil {
		return nil, WrapError("verify token", err)
	}
	return &user, nil
}

// ListActors returns every actor the account created or used, following
// pagination (GET /acts).
func (c *Client) ListActors(ctx context.Context) ([]Actor, error) {
	const op = "list actors"
	var out []Actor
	for offset := 0; ; {
		q := url.Values{}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(c.config.PageSize))
		body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/acts", query: q, retry: true})
		if err != nil {
			return nil, err
		}
		page, err := decodeData[list[Actor]](body)
		if err != nil {
			return nil, WrapError(op, err)
		}
		out = append(out, page.Items...)
		offset += len(page.Items)
		if len(page.Items) == 0 || len(page.Items) < c.config.PageSize || (page.Total > 0 && offset >= page.Total) {
			break
		}
	}
	c.logger.Debug("actors listed", "count", len(out))
	return out, nil
}

// FetchSchema returns the input schema of the actor's default build. The
// actor is looked up first so a missing actor yields a not-found error; an
// actor whose build has no input schema yields a document with nil Raw.
func (c *Client) FetchSchema(ctx context.Context, actorID string) (*SchemaDocument, error) {
	const op = "fetch schema"
	id := URLSafeActorID(actorID)
	if id == "" {
		return nil, &Error{Op: op, StatusCode: http.StatusNotFound, Type: "record-not-found", Message: "actor id is empty"}
	}

	if _, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/acts/" + url.PathEscape(id), retry: true}); err != nil {
		return nil, err
	}

	doc := &SchemaDocument{ActorID: id}
	body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/acts/" + url.PathEscape(id) + "/builds/default", retry: true})
	if err != nil {
		if IsNotFound(err) {
			c.logger.Debug("actor has no default build", "actor_id", id)
			return doc, nil
		}
		return nil, err
	}
	b, err := decodeData[build](body)
	if err != nil {
		return nil, WrapError(op, err)
	}
	doc.BuildID = b.ID
	doc.Raw = b.schema()
	return doc, nil
}

// RunActor starts a run, waits for a terminal status, and reads the run's
// default dataset.
func (c *Client) RunActor(ctx context.Context, actorID string, payload map[string]any) (*RunResult, error) {
	const op = "run actor"
	id := URLSafeActorID(actorID)
	if payload == nil {
		payload = map[string]any{}
	}

	q := url.Values{}
	q.Set("waitForFinish", strconv.Itoa(c.config.WaitForFinish))
	body, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "/acts/" + url.PathEscape(id) + "/runs", query: q, body: payload})
	if err != nil {
		return nil, err
	}
	run, err := decodeData[Run](body)
	if err != nil {
		return nil, WrapError(op, err)
	}
	c.logger.Info("run started", "actor_id", id, "run_id", run.ID, "status", run.Status)

	run, err = c.waitForRun(ctx, run)
	if err != nil {
		return nil, err
	}
	c.logger.Info("run finished", "actor_id", id, "run_id", run.ID, "status", run.Status)

	items, err := c.datasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}
	return &RunResult{Run: run, Items: items}, nil
}

func (c *Client) waitForRun(ctx context.Context, run Run) (Run, error) {
	const op = "wait for run"
	var deadline time.Time
	if c.config.RunWait > 0 {
		deadline = time.Now().Add(c.config.RunWait)
	}

	for !run.Status.IsTerminal() {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return run, &Error{Op: op, Message: fmt.Sprintf("run %s still %s", run.ID, run.Status), Err: ErrRunNotFinished}
		}
		if c.config.PollInterval > 0 {
			select {
			case <-ctx.Done():
				return run, WrapError(op, ctx.Err())
			case <-time.After(c.config.PollInterval):
			}
		}

		q := url.Values{}
		q.Set("waitForFinish", strconv.Itoa(c.config.WaitForFinish))
		body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/actor-runs/" + url.PathEscape(run.ID), query: q, retry: true})
		if err != nil {
			return run, err
		}
		next, err := decodeData[Run](body)
		if err != nil {
			return run, WrapError(op, err)
		}
		if next.Status != run.Status {
			if !run.Status.CanTransitionTo(next.Status) {
				c.logger.Warn("unexpected run status change", "run_id", run.ID, "from", run.Status, "to", next.Status)
			} else {
				c.logger.Debug("run status", "run_id", run.ID, "from", run.Status, "to", next.Status)
			}
		}
		run = next
	}
	return run, nil
}

// datasetItems reads all rows of a dataset in order, one page at a time.
func (c *Client) datasetItems(ctx context.Context, datasetID string) ([]json.RawMessage, error) {
	const op = "list dataset items"
	if datasetID == "" {
		return []json.RawMessage{}, nil
	}

	items := []json.RawMessage{}
	for offset := 0; ; {
		q := url.Values{}
		q.Set("format", "json")
		q.Set("clean", "true")
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(c.config.PageSize))
		body, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/datasets/" + url.PathEscape(datasetID) + "/items", query: q, retry: true})
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, WrapError(op, fmt.Errorf("unmarshaling items: %w", err))
		}
		items = append(items, page...)
		offset += len(page)
		if len(page) < c.config.PageSize {
			break
		}
	}
	return items, nil
}
