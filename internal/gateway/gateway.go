// Package gateway implements the buyer- and seller-facing services.
// Gateways are stateless routers: they validate sessions against the
// customer service, compose calls to the backing services, and hold no
// persistent state of their own.
package gateway

import (
	"context"
	"log"

	"minimart/internal/protocol"
	"minimart/pkg/apierror"
)

// Caller issues requests to a backing service. Satisfied by
// transport.Client; a Caller instance belongs to one connection worker
// and must not be shared (pooled connections carry one request at a
// time).
type Caller interface {
	Call(ctx context.Context, addr, api string, data any, requestID string) (*protocol.Response, error)
	Close() error
}

// sessionInfo is the validated identity behind a session token.
type sessionInfo struct {
	Role   string `json:"role"`
	UserID int64  `json:"user_id"`
}

// core holds what both gateways share: backing addresses and the
// per-worker caller.
type core struct {
	name         string
	customerAddr string
	productAddr  string
	caller       Caller
}

// dbCall forwards one call to a backing service, reusing the inbound
// request id for correlation. Backing responses — success or failure —
// are returned verbatim; only a transport failure that survived the
// caller's single retry is translated, into UNAVAILABLE.
func (c *core) dbCall(ctx context.Context, addr, api string, data any, req *protocol.Request) *protocol.Response {
	resp, err := c.caller.Call(ctx, addr, api, data, req.RequestID)
	if err != nil {
		log.Printf("[%s] Backing call %s to %s failed: %v", c.name, api, addr, err)
		return protocol.ErrResponse(req, apierror.Unavailable("backing service unavailable"))
	}
	return resp
}

// requireSession enforces the session guard: a missing session_id is
// NOT_LOGGED_IN synthesized here; a present token is validated by the
// customer service and its NOT_LOGGED_IN/SESSION_TIMEOUT surfaces
// verbatim. On success the caller gets the session identity.
func (c *core) requireSession(ctx context.Context, req *protocol.Request) (*sessionInfo, *protocol.Response) {
	var p struct {
		SessionID string `json:"session_id"`
	}
	if err := protocol.DecodeData(req.Data, &p); err != nil {
		return nil, protocol.ErrResponse(req, apierror.InvalidArgument(err.Error()))
	}
	if p.SessionID == "" {
		return nil, protocol.ErrResponse(req, apierror.NotLoggedIn("session_id required"))
	}

	resp := c.dbCall(ctx, c.customerAddr, "ValidateSession",
		map[string]string{"session_id": p.SessionID}, req)
	if !resp.OK {
		return nil, resp
	}

	var sess sessionInfo
	if err := protocol.DecodeData(resp.Data, &sess); err != nil {
		return nil, protocol.ErrResponse(req, apierror.Unavailable("malformed session data"))
	}
	return &sess, nil
}

// Close releases the worker's pooled connections.
func (c *core) Close() error {
	return c.caller.Close()
}
