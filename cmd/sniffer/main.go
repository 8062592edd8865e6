// The sniffer command captures traffic to and from a running server and
// prints the decoded packets, which is handy for debugging against a real
// client without enabling packet logging on the server itself.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

var (
	device = flag.String("d", "en0", "Device on which to listen for packets")
	ports  = flag.String("p", "2050,20201", "Comma-separated server ports to capture")
)

func main() {
	flag.Parse()

	serverPorts, err := parsePorts(*ports)
	if err != nil {
		exit("invalid ports %q: %v", *ports, err)
	}

	handle, err := pcap.OpenLive(*device, math.MaxInt32, false, pcap.BlockForever)
	if err != nil {
		exit("error opening handle: %v", err)
	}
	if err := handle.SetBPFFilter(buildFilter(serverPorts)); err != nil {
		exit("error setting filter: %v", err)
	}

	s := &sniffer{
		Writer:      bufio.NewWriter(os.Stdout),
		serverPorts: serverPorts,
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	s.startReading(packetSource.Packets())
}

func parsePorts(list string) (map[uint16]bool, error) {
	serverPorts := make(map[uint16]bool)
	for _, p := range strings.Split(list, ",") {
		port, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return nil, err
		}
		serverPorts[uint16(port)] = true
	}
	return serverPorts, nil
}

func buildFilter(serverPorts map[uint16]bool) string {
	clauses := make([]string, 0, len(serverPorts))
	for port := range serverPorts {
		clauses = append(clauses, fmt.Sprintf("port %d", port))
	}
	return "tcp and (" + strings.Join(clauses, " or ") + ")"
}

func exit(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
