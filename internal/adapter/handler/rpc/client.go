package rpc

import (
	"context"

	"google.golang.org/grpc"
)

type ItemServiceClient interface {
	ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (ItemService_ListItemsClient, error)
	GetItemDetails(ctx context.Context, in *GetItemDetailsRequest, opts ...grpc.CallOption) (*ItemDetails, error)
	CreateItem(ctx context.Context, in *CreateItemRequest, opts ...grpc.CallOption) (*ItemIDResponse, error)
	UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemIDResponse, error)
	IncrementItemStock(ctx context.Context, in *IncrementItemStockRequest, opts ...grpc.CallOption) (*IncrementItemStockResponse, error)
	DeleteItem(ctx context.Context, in *DeleteItemRequest, opts ...grpc.CallOption) (*Empty, error)
}

type ItemService_ListItemsClient interface {
	Recv() (*Item, error)
	grpc.ClientStream
}

type itemServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewItemServiceClient returns a client that always speaks the JSON codec.
func NewItemServiceClient(cc grpc.ClientConnInterface) ItemServiceClient {
	return &itemServiceClient{cc: cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *itemServiceClient) ListItems(ctx context.Context, in *ListItemsRequest, opts ...grpc.CallOption) (ItemService_ListItemsClient, error) {
	stream, err := c.cc.NewStream(ctx, &ItemService_ServiceDesc.Streams[0], listItemsMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &itemServiceListItemsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type itemServiceListItemsClient struct {
	grpc.ClientStream
}

func (x *itemServiceListItemsClient) Recv() (*Item, error) {
	m := new(Item)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *itemServiceClient) GetItemDetails(ctx context.Context, in *GetItemDetailsRequest, opts ...grpc.CallOption) (*ItemDetails, error) {
	out := new(ItemDetails)
	if err := c.cc.Invoke(ctx, getItemDetailsMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *itemServiceClient) CreateItem(ctx context.Context, in *CreateItemRequest, opts ...grpc.CallOption) (*ItemIDResponse, error) {
	out := new(ItemIDResponse)
	if err := c.cc.Invoke(ctx, createItemMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *itemServiceClient) UpdateItem(ctx context.Context, in *UpdateItemRequest, opts ...grpc.CallOption) (*ItemIDResponse, error) {
	out := new(ItemIDResponse)
	if err := c.cc.Invoke(ctx, updateItemMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *itemServiceClient) IncrementItemStock(ctx context.Context, in *IncrementItemStockRequest, opts ...grpc.CallOption) (*IncrementItemStockResponse, error) {
	out := new(IncrementItemStockResponse)
	if err := c.cc.Invoke(ctx, incrementItemStockMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *itemServiceClient) DeleteItem(ctx context.Context, in *DeleteItemRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, deleteItemMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
