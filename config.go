package main

import (
	"os"
	"path/filepath"

	"ollamaui/config"
	"ollamaui/logger"
)

// findSSLCertificates looks for SSL certificates: configured paths first, then common locations
func findSSLCertificates(cfg config.ServerConfig) (certPath, keyPath string, found bool) {
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		if fileExists(cfg.CertFile) && fileExists(cfg.KeyFile) {
			return cfg.CertFile, cfg.KeyFile, true
		}
		logger.Warn("configured certificate files not found", "cert", cfg.CertFile, "key", cfg.KeyFile)
	}

	// Working directory
	if fileExists("cert.pem") && fileExists("key.pem") {
		return "cert.pem", "key.pem", true
	}

	// Let's Encrypt certificates
	if domain := os.Getenv("BASE_DOMAIN"); domain != "" {
		basePath := filepath.Join("/etc/letsencrypt/live", domain)
		certFile := filepath.Join(basePath, "fullchain.pem")
		keyFile := filepath.Join(basePath, "privkey.pem")

		if fileExists(certFile) && fileExists(keyFile) {
			logger.Info("found Let's Encrypt certificates", "path", basePath)
			return certFile, keyFile, true
		}
	}

	// Common alternative locations
	alternativePaths := []struct {
		cert string
		key  string
	}{
		{"/etc/ssl/certs/cert.pem", "/etc/ssl/private/key.pem"},
		{"/etc/ssl/cert.pem", "/etc/ssl/key.pem"},
	}

	for _, paths := range alternativePaths {
		if fileExists(paths.cert) && fileExists(paths.key) {
			logger.Info("found certificates", "path", filepath.Dir(paths.cert))
			return paths.cert, paths.key, true
		}
	}

	return "", "", false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
