package verify

import (
	"context"

	"google.golang.org/grpc"
)

type VerifyServiceServer interface {
	GetVerifyCode(ctx context.Context, req *GetVerifyReq) (*GetVerifyRsp, error)
}

// RegisterVerifyService exposes svc on s. The server must be built with
// grpc.ForceServerCodec(Codec{}).
func RegisterVerifyService(s *grpc.Server, svc VerifyServiceServer) {
	s.RegisterService(&serviceDesc, svc)
}

func getVerifyCodeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetVerifyReq)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerifyServiceServer).GetVerifyCode(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GET_VERIFY_CODE,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerifyServiceServer).GetVerifyCode(ctx, req.(*GetVerifyReq))
	}
	return interceptor(ctx, req, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: VERIFY_SERVICE,
	HandlerType: (*VerifyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetVerifyCode",
			Handler:    getVerifyCodeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "message.proto",
}
