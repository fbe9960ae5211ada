package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/httpclient"
	"github.com/tphakala/monadwatch/internal/logger"
)

// Event actions of the Events v2 API
const (
	actionTrigger = "trigger"
	actionResolve = "resolve"
)

// PagingEvent is an Events v2 enqueue request.
type PagingEvent struct {
	RoutingKey  string         `json:"routing_key"`
	EventAction string         `json:"event_action"`
	DedupKey    string         `json:"dedup_key"`
	Payload     *PagingPayload `json:"payload,omitempty"`
}

// PagingPayload describes the incident.
type PagingPayload struct {
	Summary       string         `json:"summary"`
	Source        string         `json:"source"`
	Severity      Severity       `json:"severity"`
	Component     string         `json:"component,omitempty"`
	Group         string         `json:"group,omitempty"`
	Class         string         `json:"class,omitempty"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

// PagingSender delivers incident trigger/resolve events.
type PagingSender interface {
	Trigger(ctx context.Context, key, summary string, severity Severity, details map[string]any) error
	Resolve(ctx context.Context, key, summary string) error
}

// PagingClient posts Events v2 documents. The sink deduplicates by key.
type PagingClient struct {
	client     *httpclient.Client
	eventsURL  string
	routingKey string
	source     string
}

// NewPagingClient creates a client posting to eventsURL.
func NewPagingClient(client *httpclient.Client, eventsURL, routingKey, source string) *PagingClient {
	return &PagingClient{
		client:     client,
		eventsURL:  eventsURL,
		routingKey: routingKey,
		source:     source,
	}
}

// Trigger opens or refreshes the incident identified by key.
func (p *PagingClient) Trigger(ctx context.Context, key, summary string, severity Severity, details map[string]any) error {
	return p.enqueue(ctx, &PagingEvent{
		RoutingKey:  p.routingKey,
		EventAction: actionTrigger,
		DedupKey:    key,
		Payload:     p.payload(summary, severity, details),
	})
}

// Resolve closes the incident identified by key.
func (p *PagingClient) Resolve(ctx context.Context, key, summary string) error {
	return p.enqueue(ctx, &PagingEvent{
		RoutingKey:  p.routingKey,
		EventAction: actionResolve,
		DedupKey:    key,
		Payload:     p.payload(summary, SeverityInfo, nil),
	})
}

func (p *PagingClient) payload(summary string, severity Severity, details map[string]any) *PagingPayload {
	return &PagingPayload{
		Summary:       summary,
		Source:        p.source,
		Severity:      severity,
		Component:     "validator",
		Group:         "monad",
		Class:         "monitor",
		CustomDetails: details,
	}
}

func (p *PagingClient) enqueue(ctx context.Context, ev *PagingEvent) error {
	start := time.Now()
	resp, err := p.client.PostJSON(ctx, p.eventsURL, ev)
	if err != nil {
		return errors.New(fmt.Errorf("paging %s: %s", ev.EventAction, logger.RedactSensitiveData(err.Error()))).
			Component("notification").
			Category(errors.CategoryNetwork).
			Context("dedup_key", ev.DedupKey).
			Timing("paging_"+ev.EventAction, time.Since(start)).
			Build()
	}
	if !resp.OK() {
		body := string(resp.Body)
		if len(body) > 200 {
			body = body[:200]
		}
		return errors.Newf("paging %s rejected: HTTP %d", ev.EventAction, resp.StatusCode).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("dedup_key", ev.DedupKey).
			Context("status_code", resp.StatusCode).
			Context("response", logger.RedactSensitiveData(body)).
			Timing("paging_"+ev.EventAction, time.Since(start)).
			Build()
	}
	return nil
}
