// Package hardware provides hardware accelerated implementations.
package hardware

import "gitlab.com/yawning/rijndael.git/internal/api"

// Factory is a factory that will construct hardware backed Rijndael
// implementations if supported.
var Factory api.Factory
