package verify

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

const (
	VERIFY_SERVICE  = "message.VerifyService"
	GET_VERIFY_CODE = "/" + VERIFY_SERVICE + "/GetVerifyCode"
)

// ServiceClient is one stub of the verification service with its own channel.
type ServiceClient struct {
	conn *grpc.ClientConn
}

// Dial builds a stub. The channel connects lazily on the first call.
func Dial(address string, opts ...grpc.DialOption) (*ServiceClient, error) {
	options := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second, // client ping server if no activity for this long
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
	}
	options = append(options, opts...)
	conn, err := grpc.NewClient(address, options...)
	if err != nil {
		return nil, err
	}
	return &ServiceClient{conn: conn}, nil
}

func (c *ServiceClient) GetVerifyCode(ctx context.Context, req *GetVerifyReq) (*GetVerifyRsp, error) {
	rsp := new(GetVerifyRsp)
	if err := c.conn.Invoke(ctx, GET_VERIFY_CODE, req, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (c *ServiceClient) Close() error {
	return c.conn.Close()
}
