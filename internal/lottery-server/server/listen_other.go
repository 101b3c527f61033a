//go:build !unix

package server

import (
	"fmt"
	"net"
)

// Listen abre um socket TCP IPv4 em todas as interfaces. Fora de unix o
// backlog fica com o valor do sistema.
func Listen(port, _ int) (net.Listener, error) {
	return net.Listen("tcp4", fmt.Sprintf(":%d", port))
}
