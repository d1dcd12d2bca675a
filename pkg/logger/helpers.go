package logger

// LogRequest logs HTTP request information
func LogRequest(method, url string, statusCode int, duration float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration,
	}

	if statusCode >= 200 && statusCode < 300 {
		GetLogger().InfoWithFields("HTTP request completed", fields)
	} else if statusCode >= 400 && statusCode < 500 {
		GetLogger().WarnWithFields("HTTP request client error", fields)
	} else if statusCode >= 500 {
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	}
}

// LogDiscovery logs a hashtag discovery cycle
func LogDiscovery(hashtags []string, limit, found int, cached bool) {
	GetLogger().InfoWithFields("discovery cycle completed", map[string]interface{}{
		"hashtags": hashtags,
		"limit":    limit,
		"found":    found,
		"cached":   cached,
	})
}

// LogExtraction logs an email extraction batch
func LogExtraction(requested, resolved int, err error) {
	fields := map[string]interface{}{
		"requested": requested,
		"resolved":  resolved,
	}

	logger := GetLogger().WithFields(fields)

	if err != nil {
		logger.WithError(err).Error("email extraction failed")
	} else {
		logger.Info("email extraction completed")
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogStageProgress logs pipeline stage progress
func LogStageProgress(stage string, percent float64, message string) {
	GetLogger().WithFields(map[string]interface{}{
		"stage":   stage,
		"percent": percent,
	}).Info(message)
}
