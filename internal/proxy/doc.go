// Package proxy implements the proxy-side request flows on top of one Exchanger:
// heartbeat, history data push, auto registration and configuration fetch.
//
// Do, Request and FetchConfig return every failure to the caller. Heartbeat, SendData,
// AutoRegister, GetConfig and GetProxyConfig collapse failures into false or a missing
// value and log the cause at debug level.
package proxy
