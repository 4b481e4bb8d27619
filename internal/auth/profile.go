package auth

// ProfileState is either ProfileNotLoaded or ProfileLoaded.
type ProfileState interface {
	profileState()
}

type ProfileNotLoaded struct{}

type ProfileLoaded struct {
	Profile Profile
}

func (ProfileNotLoaded) profileState() {}
func (ProfileLoaded) profileState()    {}
