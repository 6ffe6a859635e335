// Package osu holds the shared enumerations of the ripple platform:
// privilege bits, mods, game modes and multiplayer match constants.
package osu

// Privileges is the user capability bitmask used across the ripple APIs.
type Privileges int64

const (
	PrivilegeUserPublic Privileges = 1 << iota
	PrivilegeUserNormal
	PrivilegeUserDonor
	PrivilegeAdminAccessRAP
	PrivilegeAdminManageUsers
	PrivilegeAdminBanUsers
	PrivilegeAdminSilenceUsers
	PrivilegeAdminWipeUsers
	PrivilegeAdminManageBeatmaps
	PrivilegeAdminManageServers
	PrivilegeAdminManageSettings
	PrivilegeAdminManageBetakeys
	PrivilegeAdminManageReports
	PrivilegeAdminManageDocs
	PrivilegeAdminManageBadges
	PrivilegeAdminViewRAPLogs
	PrivilegeAdminManagePrivileges
	PrivilegeAdminSendAlerts
	PrivilegeAdminChatMod
	PrivilegeAdminKickUsers
	PrivilegeUserPendingVerification
	PrivilegeUserTournamentStaff
	PrivilegeAdminCaker

	PrivilegeNone        Privileges = 0
	PrivilegeUserAllowed            = PrivilegeUserPublic | PrivilegeUserNormal
)

// Has reports whether all bits of other are set.
func (p Privileges) Has(other Privileges) bool {
	return p&other == other
}

// ClientType distinguishes game and irc clients on bancho.
type ClientType int

const (
	ClientOsu ClientType = iota
	ClientIRC
)
