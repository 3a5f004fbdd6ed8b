package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は推論サービスなど外部HTTP呼び出し用のクライアントを作成します。
//
// 同一ホストへの連続アップロードを想定し、ホストあたりのアイドル接続を多めに保持します。
// timeout はリクエスト全体（画像送信と推論待ち）の上限です。
// http.DefaultClientにはタイムアウトがないため使用しないこと。
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
