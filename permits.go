package auth

// IsElevated reports whether the actor gets administrative override: either
// the configured super-admin username, or the EDIT bit.
//
// Note this gates on EditPermit, not AdminPermit, mirroring the behavior the
// frontend depends on. Open question upstream; do not "fix" without
// coordinating a permission migration.
func IsElevated(adminUname string, u CheckCan) bool {
	return (adminUname != "" && u.Uname == adminUname) || u.Can(EditPermit)
}
