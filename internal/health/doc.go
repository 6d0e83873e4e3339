// Package health provides the relay's liveness, health and readiness
// probes.
//
// Readiness aggregates registered checks. The merchant credential check
// reports degraded, not unhealthy, when the certificate yielded no
// merchant identifier or key pair: the relay keeps serving, but Apple
// will reject every validation call.
//
//	checker := health.NewChecker(version, logger)
//	checker.RegisterCheck("merchant_credential", health.MerchantCredentialCheck(cred))
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/ready", checker.ReadinessHandler())
package health
