package snooze

import (
	"context"
	"errors"

	"github.com/hazyhaar/snooze/kit"
)

// Requests shared by the HTTP routes and the MCP tools.

type setRequest struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

type idRequest struct {
	ID string `json:"id"`
}

type overrideRequest struct {
	// Show nil flips the flag.
	Show *bool `json:"show,omitempty"`
}

type overrideResponse struct {
	Show bool `json:"show"`
}

type exportResponse struct {
	FileName string            `json:"file_name"`
	Entries  map[string]string `json:"entries"`
}

func (e *Engine) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(e.logger, name))(ep)
}

func (e *Engine) listEndpoint(ctx context.Context, _ any) (any, error) {
	items, err := e.Items(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []ItemView{}
	}
	return items, nil
}

func (e *Engine) setEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(setRequest)
	return e.SetItem(ctx, r.ID, r.Date)
}

func (e *Engine) clearEndpoint(ctx context.Context, req any) (any, error) {
	return e.ClearItem(ctx, req.(idRequest).ID)
}

func (e *Engine) overrideEndpoint(ctx context.Context, req any) (any, error) {
	r, _ := req.(overrideRequest)
	var show bool
	var err error
	if r.Show == nil {
		show, err = e.ToggleOverride(ctx)
	} else {
		show, err = e.SetOverride(ctx, *r.Show)
	}
	if err != nil {
		return nil, err
	}
	return overrideResponse{Show: show}, nil
}

func (e *Engine) exportEndpoint(ctx context.Context, _ any) (any, error) {
	data, err := e.Export(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := decodeExport(data)
	if err != nil {
		return nil, err
	}
	return exportResponse{FileName: ExportFileName, Entries: entries}, nil
}

func (e *Engine) importEndpoint(ctx context.Context, req any) (any, error) {
	data, ok := req.([]byte)
	if !ok || len(data) == 0 {
		return nil, kit.BadRequest(errors.New("snooze: empty import"))
	}
	return e.Import(ctx, data)
}
