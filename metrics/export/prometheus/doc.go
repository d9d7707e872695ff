// Package prometheus renders session store metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads [goAuthClient.Store.MetricsSnapshot] on every
// scrape. Counter names are goauthclient_*_total and the one histogram is
// goauthclient_remote_latency_seconds. Sources that also expose a session
// snapshot get a goauthclient_authenticated gauge.
//
// Nothing is registered globally. Callers mount [PrometheusExporter.Handler].
package prometheus
