// Package panel manages the single container that embeds the local proxy.
//
// A Controller owns at most one live Panel. CreateOrShow reveals the live
// panel instead of creating a second one, Hide and user closes both clear the
// singleton, and Revive adopts a container restored by the host.
package panel
