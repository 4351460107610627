package limiters

// Keys builds scope keys under an optional namespace.
type Keys struct {
	prefix string
}

func NewKeys(namespace string) Keys {
	if namespace == "" {
		return Keys{}
	}
	return Keys{prefix: namespace + ":"}
}

func (k Keys) Register(ip string) string {
	return k.prefix + "register:" + ip
}

func (k Keys) RegisterChallenge(ip string) string {
	return k.prefix + "register:otp:" + ip
}

func (k Keys) LoginIP(ip string) string {
	return k.prefix + "login_fail:attempts:" + ip
}

func (k Keys) LoginPassword(ip, username string) string {
	return k.prefix + "login_fail:password:" + ip + ":" + username
}

func (k Keys) ForgotChallenge(ip, username string) string {
	return k.prefix + "forgot_password:otp:" + ip + ":" + username
}

func (k Keys) Reset(ip string) string {
	return k.prefix + "reset_password:" + ip
}
