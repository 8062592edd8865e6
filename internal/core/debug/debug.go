// Package debug holds optional utilities for inspecting a running server.
package debug

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/splashsrv/splashsrv/internal/packets"
)

// StartPprofServer starts the default pprof HTTP server that can be accessed
// via localhost to get runtime information about the server.
// See https://golang.org/pkg/net/http/pprof/
func StartPprofServer(logger *logrus.Logger, port int) {
	listenerAddr := fmt.Sprintf("localhost:%d", port)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

var dumper = &spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}

// LogPacket writes a decoded packet to the logger at debug level. Packets
// that failed to decode still have their opcode and sequence number, which
// is all that gets printed for them.
func LogPacket(logger *logrus.Logger, serverName, direction string, env packets.Envelope) {
	if env.Packet == nil {
		logger.Debugf("[%s] %s opcode=%d pid=%d (undecoded)", serverName, direction, env.ID, env.PID)
		return
	}
	logger.Debugf("[%s] %s opcode=%d pid=%d\n%s", serverName, direction, env.ID, env.PID, dumper.Sdump(env.Packet))
}
