// Package rtc exposes the WebRTC configuration endpoints hand to their
// peer connections. The coordinator never builds peer connections itself;
// it only tells clients which ICE servers to use.
package rtc

import "github.com/pion/webrtc/v4"

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// ConfigFromURLs maps configured ICE server URLs into a client-ready
// webrtc.Configuration, falling back to the default STUN server.
func ConfigFromURLs(urls []string) webrtc.Configuration {
	if len(urls) == 0 {
		return DefaultWebRTCConfig()
	}
	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	return webrtc.Configuration{ICEServers: servers}
}
