package grpc

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ErrMethodNotFound is returned when a service/method pair is not declared
// in the compiled proto files.
var ErrMethodNotFound = errors.New("method not found")

// FindMethod searches the compiled proto files for method on service. The
// service may be given by its short name ("Echo") or its full name
// ("test.Echo"). The file declaring the service is returned along with the
// method descriptor.
func FindMethod(files linker.Files, service, method string) (protoreflect.FileDescriptor, protoreflect.MethodDescriptor, error) {
	for _, file := range files {
		services := file.Services()
		for i := 0; i < services.Len(); i++ {
			sd := services.Get(i)
			if string(sd.Name()) != service && string(sd.FullName()) != service {
				continue
			}
			if md := sd.Methods().ByName(protoreflect.Name(method)); md != nil {
				return file, md, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, service, method)
}

// compileProtoFiles compiles the provided proto sources (filename → content)
// into linker.Files using protocompile with standard imports enabled. The
// input map is not modified.
func compileProtoFiles(protoFiles map[string]string) (linker.Files, error) {
	if len(protoFiles) == 0 {
		return nil, errors.New("no proto files to compile")
	}
	accessor := protocompile.SourceAccessorFromMap(protoFiles)
	r := protocompile.WithStandardImports(&protocompile.SourceResolver{Accessor: accessor})
	compiler := protocompile.Compiler{
		Resolver:       r,
		SourceInfoMode: protocompile.SourceInfoStandard,
	}
	names := slices.Sorted(maps.Keys(protoFiles))
	fds, err := compiler.Compile(context.Background(), names...)
	if err != nil || fds == nil {
		zap.L().Error("failed to compile proto files", zap.Strings("files", names), zap.Error(err))
		return nil, fmt.Errorf("failed to compile proto files: %w", err)
	}
	return fds, nil
}
