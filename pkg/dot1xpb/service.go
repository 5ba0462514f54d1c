package dot1xpb

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// Procedure paths, mirroring the "/<package>.<Service>/<Method>" shape
// buf/protoc-gen-connect-go would generate from a dot1x.v1.Dot1xService
// proto definition.
const (
	serviceName = "dot1x.v1.Dot1xService"

	ListPortsProcedure       = "/" + serviceName + "/ListPorts"
	GetPortProcedure         = "/" + serviceName + "/GetPort"
	SetPortProcedure         = "/" + serviceName + "/SetPort"
	WatchPortEventsProcedure = "/" + serviceName + "/WatchPortEvents"
)

// Dot1xServiceHandler is the server-side interface implemented by
// internal/server.Dot1xServer.
type Dot1xServiceHandler interface {
	ListPorts(context.Context, *connect.Request[ListPortsRequest]) (*connect.Response[ListPortsResponse], error)
	GetPort(context.Context, *connect.Request[GetPortRequest]) (*connect.Response[GetPortResponse], error)
	SetPort(context.Context, *connect.Request[SetPortRequest]) (*connect.Response[SetPortResponse], error)
	WatchPortEvents(context.Context, *connect.Request[WatchPortEventsRequest], *connect.ServerStream[PortEvent]) error
}

// defaultOptions prepends the JSON codec to the caller's options so every
// handler/client constructed by this package speaks it without the
// caller needing to remember to pass connect.WithCodec explicitly.
func defaultOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

func defaultClientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
}

// NewDot1xServiceHandler returns the mux path prefix and HTTP handler for
// svc, exactly as a generated `<service>connect.NewXxxServiceHandler`
// constructor would.
func NewDot1xServiceHandler(svc Dot1xServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	options := defaultOptions(opts)

	mux := http.NewServeMux()
	mux.Handle(ListPortsProcedure, connect.NewUnaryHandler(
		ListPortsProcedure, svc.ListPorts, options...,
	))
	mux.Handle(GetPortProcedure, connect.NewUnaryHandler(
		GetPortProcedure, svc.GetPort, options...,
	))
	mux.Handle(SetPortProcedure, connect.NewUnaryHandler(
		SetPortProcedure, svc.SetPort, options...,
	))
	mux.Handle(WatchPortEventsProcedure, connect.NewServerStreamHandler(
		WatchPortEventsProcedure, svc.WatchPortEvents, options...,
	))

	return "/" + serviceName + "/", mux
}

// Dot1xServiceClient is the client-side interface for cmd/dot1xctl.
type Dot1xServiceClient interface {
	ListPorts(context.Context, *connect.Request[ListPortsRequest]) (*connect.Response[ListPortsResponse], error)
	GetPort(context.Context, *connect.Request[GetPortRequest]) (*connect.Response[GetPortResponse], error)
	SetPort(context.Context, *connect.Request[SetPortRequest]) (*connect.Response[SetPortResponse], error)
	WatchPortEvents(context.Context, *connect.Request[WatchPortEventsRequest]) (*connect.ServerStreamForClient[PortEvent], error)
}

type dot1xServiceClient struct {
	listPorts       *connect.Client[ListPortsRequest, ListPortsResponse]
	getPort         *connect.Client[GetPortRequest, GetPortResponse]
	setPort         *connect.Client[SetPortRequest, SetPortResponse]
	watchPortEvents *connect.Client[WatchPortEventsRequest, PortEvent]
}

// NewDot1xServiceClient builds a client for the Dot1xService at baseURL.
func NewDot1xServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) Dot1xServiceClient {
	options := defaultClientOptions(opts)
	return &dot1xServiceClient{
		listPorts:       connect.NewClient[ListPortsRequest, ListPortsResponse](httpClient, baseURL+ListPortsProcedure, options...),
		getPort:         connect.NewClient[GetPortRequest, GetPortResponse](httpClient, baseURL+GetPortProcedure, options...),
		setPort:         connect.NewClient[SetPortRequest, SetPortResponse](httpClient, baseURL+SetPortProcedure, options...),
		watchPortEvents: connect.NewClient[WatchPortEventsRequest, PortEvent](httpClient, baseURL+WatchPortEventsProcedure, options...),
	}
}

func (c *dot1xServiceClient) ListPorts(ctx context.Context, req *connect.Request[ListPortsRequest]) (*connect.Response[ListPortsResponse], error) {
	return c.listPorts.CallUnary(ctx, req)
}

func (c *dot1xServiceClient) GetPort(ctx context.Context, req *connect.Request[GetPortRequest]) (*connect.Response[GetPortResponse], error) {
	return c.getPort.CallUnary(ctx, req)
}

func (c *dot1xServiceClient) SetPort(ctx context.Context, req *connect.Request[SetPortRequest]) (*connect.Response[SetPortResponse], error) {
	return c.setPort.CallUnary(ctx, req)
}

func (c *dot1xServiceClient) WatchPortEvents(ctx context.Context, req *connect.Request[WatchPortEventsRequest]) (*connect.ServerStreamForClient[PortEvent], error) {
	return c.watchPortEvents.CallServerStream(ctx, req)
}
