package respond

// AuthRespond 注册/登录成功后返回
type AuthRespond struct {
	Uuid     string `json:"uuid"`
	Username string `json:"username"`
	Token    string `json:"token"`
}
