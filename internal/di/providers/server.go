package providers

import (
	"context"
	"errors"
	"io"
	"net"
	"os"

	"github.com/samber/do/v2"

	"github.com/convomarkapp/convomark-host/internal/config"
	"github.com/convomarkapp/convomark-host/internal/logger"
	"github.com/convomarkapp/convomark-host/internal/rpc"
)

// RPCServerHandle wraps the RPC server with its listener and context for
// lifecycle management. StdioDone closes when the stdio peer goes away, so
// the daemon can exit with the browser that launched it.
type RPCServerHandle struct {
	*rpc.Server
	cancel    context.CancelFunc
	StdioDone <-chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *RPCServerHandle) Shutdown() error {
	h.cancel()
	h.Server.Shutdown()
	return nil
}

// stdioPipe joins stdin and stdout into the native-messaging channel.
type stdioPipe struct {
	in  io.Reader
	out io.Writer
}

func (p stdioPipe) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p stdioPipe) Write(b []byte) (int, error) { return p.out.Write(b) }

// ProvideRPCServer provides the request/response server with all store
// handlers registered, serving the unix socket and, when configured, the
// stdio channel.
func ProvideRPCServer(i do.Injector) (*RPCServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)

	server := rpc.NewServer(rpc.ServerOptions{
		Logger:            log,
		RequestsPerSecond: cfg.RPC.RequestsPerSecond,
	})
	rpc.RegisterStoreHandlers(server, storeHandle.Store, indexHandle.Index)

	// A stale socket from an unclean exit blocks the listener.
	if err := os.Remove(cfg.RPC.SocketPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	ln, err := net.Listen("unix", cfg.RPC.SocketPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer os.Remove(cfg.RPC.SocketPath)
		if err := server.Serve(ctx, ln); err != nil && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
			log.Error("Socket server stopped", "error", err)
		}
	}()
	log.Info("RPC socket listening", "path", cfg.RPC.SocketPath)

	var stdioDone chan struct{}
	if cfg.RPC.ServeStdio {
		stdioDone = make(chan struct{})
		go func() {
			defer close(stdioDone)
			pipe := stdioPipe{in: os.Stdin, out: os.Stdout}
			if err := server.ServeConn(ctx, "stdio", pipe); err != nil && ctx.Err() == nil {
				log.Error("Stdio channel stopped", "error", err)
			}
		}()
		log.Info("Native-messaging channel serving on stdio")
	}

	return &RPCServerHandle{
		Server:    server,
		cancel:    cancel,
		StdioDone: stdioDone,
	}, nil
}
