package pushserver

import (
	"fmt"
	"log"
	"net"
)

// logAccessURLs はサーバーに到達できるURLをログに出力する。
func (s *Server) logAccessURLs(scheme string) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		log.Printf("[Server] ネットワークアドレスの取得に失敗: %v", err)
	}

	log.Printf("[Server] Push Server を %s で起動します（port %s）", scheme, s.cfg.Port)
	log.Printf("[Server]   - Local:   %s://localhost:%s", scheme, s.cfg.Port)
	for _, u := range networkURLs(scheme, s.cfg.Port, addrs) {
		log.Printf("[Server]   - Network: %s", u)
	}
	if scheme == "https" {
		log.Println("[Server] モバイル端末ではmkcertのCA証明書を信頼させる必要があります")
	}
}

// networkURLs はループバック以外のIPv4アドレスに対するURLを返す。
func networkURLs(scheme, port string, addrs []net.Addr) []string {
	var urls []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		urls = append(urls, fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(ip4.String(), port)))
	}
	return urls
}
