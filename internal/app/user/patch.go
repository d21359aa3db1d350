package user

import "time"

// ProfilePatch lists the fields a profile update touches. Absent fields keep their stored values.
type ProfilePatch struct {
	Name      Optional[string]
	Email     Optional[string]
	Phone     Optional[string]
	AvatarKey Optional[string]
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return !p.Name.Present() && !p.Email.Present() && !p.Phone.Present() && !p.AvatarKey.Present()
}

// Normalized returns p with a present email normalised.
func (p ProfilePatch) Normalized() ProfilePatch {
	if email, ok := p.Email.Get(); ok {
		p.Email = Some(NormalizeEmail(email))
	}
	return p
}

// Apply returns a copy of u with every present field of p merged in.
func (p ProfilePatch) Apply(u User, now time.Time) User {
	u.Name = p.Name.Or(u.Name)
	u.Email = p.Email.Or(u.Email)
	u.Phone = p.Phone.Or(u.Phone)
	u.AvatarKey = p.AvatarKey.Or(u.AvatarKey)
	if !p.IsEmpty() {
		u.UpdatedAt = now
	}
	return u
}
