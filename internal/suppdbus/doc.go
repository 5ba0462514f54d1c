// Package suppdbus exposes the supplicant's single port over D-Bus as
// org.freedesktop.dot1x.Supplicant1, the supplicant-side analog of
// internal/server's authenticator management RPC (SPEC_FULL.md Section
// 4.13). The interface name and property/method shape are modeled on
// wpa_supplicant's real net.wpa_supplicant1.Interface contract rather
// than invented: State and EAPMethod are read-only properties,
// Reauthenticate and Logoff are no-argument methods mirroring
// dot1x.Supplicant's own Reauthenticate/Logoff calls.
package suppdbus
