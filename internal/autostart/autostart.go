// Package autostart registers the application to start on login.
package autostart

// Enable registers the current executable to start on login.
func Enable() error {
	return enable()
}

// Disable removes the login registration.
func Disable() error {
	return disable()
}

// IsEnabled reports whether start-on-login is currently registered.
func IsEnabled() bool {
	return isEnabled()
}
