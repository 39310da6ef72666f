package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "itemstock.v1.ItemService"

const (
	listItemsMethod          = "/" + ServiceName + "/ListItems"
	getItemDetailsMethod     = "/" + ServiceName + "/GetItemDetails"
	createItemMethod         = "/" + ServiceName + "/CreateItem"
	updateItemMethod         = "/" + ServiceName + "/UpdateItem"
	incrementItemStockMethod = "/" + ServiceName + "/IncrementItemStock"
	deleteItemMethod         = "/" + ServiceName + "/DeleteItem"
)

// ItemServiceServer is implemented by the gRPC handler.
type ItemServiceServer interface {
	ListItems(*ListItemsRequest, ItemService_ListItemsServer) error
	GetItemDetails(context.Context, *GetItemDetailsRequest) (*ItemDetails, error)
	CreateItem(context.Context, *CreateItemRequest) (*ItemIDResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemIDResponse, error)
	IncrementItemStock(context.Context, *IncrementItemStockRequest) (*IncrementItemStockResponse, error)
	DeleteItem(context.Context, *DeleteItemRequest) (*Empty, error)
}

type ItemService_ListItemsServer interface {
	Send(*Item) error
	grpc.ServerStream
}

type itemServiceListItemsServer struct {
	grpc.ServerStream
}

func (s *itemServiceListItemsServer) Send(item *Item) error {
	return s.ServerStream.SendMsg(item)
}

func RegisterItemServiceServer(s grpc.ServiceRegistrar, srv ItemServiceServer) {
	s.RegisterService(&ItemService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(ItemServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ItemServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ItemServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func listItemsHandler(srv any, stream grpc.ServerStream) error {
	in := new(ListItemsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ItemServiceServer).ListItems(in, &itemServiceListItemsServer{stream})
}

var ItemService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ItemServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetItemDetails",
			Handler:    unaryHandler(getItemDetailsMethod, ItemServiceServer.GetItemDetails),
		},
		{
			MethodName: "CreateItem",
			Handler:    unaryHandler(createItemMethod, ItemServiceServer.CreateItem),
		},
		{
			MethodName: "UpdateItem",
			Handler:    unaryHandler(updateItemMethod, ItemServiceServer.UpdateItem),
		},
		{
			MethodName: "IncrementItemStock",
			Handler:    unaryHandler(incrementItemStockMethod, ItemServiceServer.IncrementItemStock),
		},
		{
			MethodName: "DeleteItem",
			Handler:    unaryHandler(deleteItemMethod, ItemServiceServer.DeleteItem),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ListItems",
			Handler:       listItemsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "itemstock/v1/item_service",
}
