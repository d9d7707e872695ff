package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one session lifecycle counter.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// AuthenticatedGauge is exported by sources that also expose session state.
const (
	AuthenticatedGauge     = "goauthclient_authenticated"
	AuthenticatedGaugeHelp = "1 when the session holds an identity."
)

// CounterDefs lists counters in exposition order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricRestoreSuccess, Name: "goauthclient_restore_success_total", Help: "Restorations that verified a persisted token."},
	{ID: goAuthClient.MetricRestoreNoToken, Name: "goauthclient_restore_no_token_total", Help: "Restorations with nothing persisted."},
	{ID: goAuthClient.MetricRestoreRejected, Name: "goauthclient_restore_rejected_total", Help: "Persisted tokens rejected by the verify endpoint."},
	{ID: goAuthClient.MetricRestoreExpired, Name: "goauthclient_restore_expired_total", Help: "Persisted tokens dropped locally as expired."},
	{ID: goAuthClient.MetricRestoreStorageFailure, Name: "goauthclient_restore_storage_failure_total", Help: "Unreadable persisted sessions."},
	{ID: goAuthClient.MetricDevLoginSuccess, Name: "goauthclient_dev_login_success_total", Help: "Development bypass logins."},
	{ID: goAuthClient.MetricDevLoginFailure, Name: "goauthclient_dev_login_failure_total", Help: "Failed development bypass logins."},
	{ID: goAuthClient.MetricLoginSuccess, Name: "goauthclient_login_success_total", Help: "Successful logins."},
	{ID: goAuthClient.MetricLoginFailure, Name: "goauthclient_login_failure_total", Help: "Failed logins."},
	{ID: goAuthClient.MetricRegisterSuccess, Name: "goauthclient_register_success_total", Help: "Successful registrations."},
	{ID: goAuthClient.MetricRegisterFailure, Name: "goauthclient_register_failure_total", Help: "Failed registrations."},
	{ID: goAuthClient.MetricRefreshSuccess, Name: "goauthclient_refresh_success_total", Help: "Successful profile refreshes."},
	{ID: goAuthClient.MetricRefreshFailure, Name: "goauthclient_refresh_failure_total", Help: "Refreshes that ended the session."},
	{ID: goAuthClient.MetricLogout, Name: "goauthclient_logout_total", Help: "Logouts, including those after a failed refresh."},
	{ID: goAuthClient.MetricPasswordResetRequest, Name: "goauthclient_password_reset_request_total", Help: "Forgot-password requests."},
	{ID: goAuthClient.MetricPasswordResetSuccess, Name: "goauthclient_password_reset_success_total", Help: "Accepted password resets."},
	{ID: goAuthClient.MetricPasswordResetFailure, Name: "goauthclient_password_reset_failure_total", Help: "Rejected password resets."},
}

// HistogramDefs lists histograms in exposition order.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRemoteLatency, Name: "goauthclient_remote_latency_seconds", Help: "Auth API call latency."},
}

// HistogramBounds are the upper bounds of the latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
