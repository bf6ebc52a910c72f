package handshake

// fixtureNonce is a nonce captured from a cloud handshake.
var fixtureNonce = []byte{
	0x31, 0xe8, 0x30, 0x24, 0x6f, 0x2d, 0x7d, 0x98, 0x7c, 0x42, 0x47, 0x7e,
	0xf0, 0x33, 0xf4, 0x24, 0xff, 0x62, 0xd3, 0x82, 0xb1, 0x7a, 0x09, 0x31,
	0x13, 0x0b, 0x23, 0x63, 0x98, 0xde, 0x90, 0x84, 0x71, 0x41, 0xf5, 0x83,
	0x04, 0x84, 0x17, 0x7b,
}

// fixtureDeviceID is the 12-byte id of the fixture device.
var fixtureDeviceID = []byte{
	0x54, 0xe1, 0xc8, 0x88, 0xf6, 0xd9, 0x49, 0x2b, 0xeb, 0xee, 0x1e, 0xe9,
}

// fixtureServerKey is a 2048-bit service public key (PKIX DER).
var fixtureServerKey = []byte{
	0x30, 0x82, 0x01, 0x22, 0x30, 0x0d, 0x06, 0x09, 0x2a, 0x86, 0x48, 0x86,
	0xf7, 0x0d, 0x01, 0x01, 0x01, 0x05, 0x00, 0x03, 0x82, 0x01, 0x0f, 0x00,
	0x30, 0x82, 0x01, 0x0a, 0x02, 0x82, 0x01, 0x01, 0x00, 0xa4, 0x4b, 0x8f,
	0x50, 0xbf, 0xd7, 0x94, 0x77, 0xf6, 0xc9, 0xbc, 0xeb, 0x1a, 0x00, 0xf3,
	0x1d, 0x31, 0x51, 0xa8, 0xe0, 0xb0, 0xd4, 0x0f, 0x3c, 0xff, 0x49, 0x85,
	0x71, 0xba, 0xfa, 0x54, 0x80, 0x9c, 0x91, 0x3d, 0x24, 0xd8, 0x9a, 0x4f,
	0x99, 0x64, 0x30, 0xfc, 0xb5, 0x96, 0x44, 0xb1, 0x24, 0x8a, 0xa8, 0xd2,
	0xc1, 0xbe, 0xea, 0x3d, 0x95, 0x9b, 0x2f, 0xb2, 0x0f, 0x1c, 0x9d, 0xf7,
	0x26, 0x51, 0xe9, 0x74, 0x7b, 0x8e, 0x7b, 0x3a, 0xef, 0xf5, 0x47, 0x83,
	0xc9, 0x71, 0x85, 0xef, 0x3c, 0x51, 0x10, 0x35, 0x40, 0xa5, 0x79, 0x61,
	0xfb, 0x21, 0x60, 0x1e, 0xdb, 0xcc, 0xa3, 0xe7, 0x98, 0x18, 0xa5, 0x61,
	0x4e, 0x7c, 0xb2, 0x91, 0xb9, 0x92, 0xa7, 0x81, 0x5c, 0x49, 0x35, 0xf2,
	0x0b, 0x23, 0x71, 0xca, 0xfe, 0x10, 0x4d, 0x9d, 0x50, 0x04, 0xd8, 0xf1,
	0x0f, 0x19, 0xd8, 0xc3, 0x7a, 0x63, 0x9d, 0xf5, 0x22, 0x23, 0x67, 0x09,
	0x12, 0xdc, 0x8d, 0xc9, 0x0f, 0x7f, 0xcc, 0xd4, 0x52, 0x64, 0x96, 0xcf,
	0x7a, 0x2c, 0x76, 0x32, 0x38, 0xca, 0x9b, 0x7a, 0xc7, 0xd4, 0x27, 0x0f,
	0x3f, 0xd1, 0xfb, 0x8a, 0x62, 0x04, 0x8b, 0xb7, 0x03, 0x25, 0x18, 0xcb,
	0xf4, 0x3b, 0x0a, 0x90, 0x50, 0x2a, 0x5e, 0xbe, 0x1f, 0xc8, 0x36, 0x3e,
	0x8f, 0x79, 0xd2, 0xb3, 0xda, 0xe1, 0x44, 0xe3, 0x09, 0xf7, 0x12, 0x17,
	0x49, 0x00, 0xc9, 0x38, 0x8c, 0xa3, 0xff, 0xdd, 0x6a, 0xd1, 0x43, 0xb8,
	0x05, 0xf8, 0x6a, 0x4a, 0xb6, 0xe0, 0x19, 0x2a, 0x02, 0x45, 0x92, 0x6f,
	0xf9, 0x61, 0xb7, 0xe8, 0x39, 0x17, 0x05, 0x19, 0x14, 0x28, 0xb3, 0x8e,
	0x4f, 0x63, 0xa5, 0x7f, 0x87, 0x7a, 0xa7, 0x62, 0x6b, 0x7a, 0x8c, 0xfd,
	0xd3, 0x10, 0xed, 0x9e, 0xab, 0x8b, 0xc5, 0xa1, 0x28, 0xb6, 0x17, 0x8e,
	0x3d, 0x02, 0x03, 0x01, 0x00, 0x01,
}

// fixtureDeviceKey is a 1024-bit device key (PKCS#1 DER, zero padded).
var fixtureDeviceKey = []byte{
	0x30, 0x82, 0x02, 0x5e, 0x02, 0x01, 0x00, 0x02, 0x81, 0x81, 0x00, 0xc4,
	0xc8, 0xeb, 0xfa, 0x99, 0xa5, 0xd1, 0xe5, 0xf9, 0x9d, 0x33, 0xea, 0x1c,
	0x93, 0xf2, 0x4a, 0x71, 0xc7, 0x1e, 0xa0, 0x1e, 0xe6, 0x71, 0x87, 0x39,
	0x5e, 0x5f, 0x69, 0x56, 0x4f, 0x76, 0xc1, 0x83, 0x61, 0x10, 0xea, 0x78,
	0x69, 0x6e, 0x5a, 0xa2, 0x4d, 0x5e, 0x83, 0x4e, 0x41, 0xd0, 0xe5, 0x44,
	0xbc, 0x48, 0x5f, 0x7d, 0x85, 0x65, 0x24, 0xb0, 0x9c, 0x9c, 0x3c, 0xd0,
	0x0f, 0x42, 0x6a, 0x6d, 0x46, 0x51, 0x9c, 0x3e, 0xdc, 0x88, 0x33, 0x84,
	0xc5, 0xf4, 0x6d, 0xad, 0x89, 0xfd, 0x01, 0xdc, 0x2b, 0x3f, 0xb0, 0x6f,
	0x12, 0x80, 0xec, 0xe2, 0xd9, 0x53, 0x00, 0x66, 0x93, 0x58, 0x3c, 0x0b,
	0x15, 0x66, 0xea, 0x47, 0xd9, 0xdd, 0x8f, 0x49, 0xee, 0xd7, 0x1a, 0x81,
	0xba, 0xe6, 0x58, 0x5c, 0x63, 0x7a, 0xdd, 0xc5, 0x11, 0xf1, 0xd2, 0xce,
	0x8c, 0x01, 0x60, 0xad, 0xf3, 0xb4, 0x5f, 0x02, 0x03, 0x01, 0x00, 0x01,
	0x02, 0x81, 0x81, 0x00, 0xbb, 0xc5, 0x58, 0xde, 0xf4, 0x13, 0xb4, 0xf8,
	0xb3, 0xb9, 0x5c, 0x5b, 0x2c, 0xcf, 0xc3, 0x27, 0x63, 0xef, 0xf3, 0x7a,
	0x28, 0x62, 0x0d, 0xbc, 0x51, 0x72, 0x8a, 0xaa, 0x51, 0xd0, 0x5b, 0x6a,
	0x05, 0x79, 0xee, 0x91, 0x3d, 0x3a, 0xa5, 0x31, 0x58, 0xa3, 0x68, 0xe6,
	0xf4, 0x1a, 0x7b, 0x40, 0xf9, 0xd8, 0x8b, 0x5a, 0x8a, 0xc4, 0x69, 0xa1,
	0x9b, 0xe0, 0xa4, 0x78, 0xa6, 0xb3, 0x98, 0xd3, 0x96, 0x20, 0x7b, 0xe4,
	0x93, 0x9a, 0x0e, 0xfe, 0xd9, 0x44, 0x54, 0x6c, 0xcf, 0x2d, 0x5e, 0x9b,
	0x91, 0x94, 0x58, 0x90, 0x30, 0xac, 0x08, 0xa5, 0xe1, 0x8e, 0x5f, 0x84,
	0xc3, 0x36, 0xd0, 0xcd, 0x0f, 0x10, 0xbf, 0x05, 0x6e, 0x29, 0x27, 0x8a,
	0x16, 0x7a, 0xc6, 0xc2, 0x78, 0xcf, 0x2c, 0xbc, 0x5e, 0x5b, 0x00, 0x38,
	0x3e, 0x66, 0xbf, 0x12, 0x2b, 0x20, 0x17, 0x8e, 0xe7, 0xe2, 0x7a, 0x09,
	0x02, 0x41, 0x00, 0xea, 0x0b, 0x61, 0xd6, 0x8d, 0x8c, 0xad, 0x1c, 0xfc,
	0x0a, 0x6f, 0x37, 0x69, 0x3a, 0xd7, 0x9f, 0x3c, 0x4e, 0xff, 0xfa, 0x97,
	0x72, 0x5c, 0x31, 0x36, 0x1f, 0x12, 0x23, 0x4b, 0x00, 0x29, 0x70, 0x82,
	0x5f, 0x3f, 0xbf, 0x98, 0xe3, 0x35, 0x24, 0xd2, 0x3f, 0xe6, 0x88, 0x9d,
	0xa6, 0x72, 0xe3, 0x4a, 0x09, 0xea, 0xca, 0xf2, 0x42, 0xce, 0x8b, 0xb6,
	0x18, 0x04, 0xac, 0x01, 0x73, 0x4c, 0xcd, 0x02, 0x41, 0x00, 0xd7, 0x3e,
	0xbe, 0x61, 0xa3, 0xf0, 0x75, 0x2b, 0xe4, 0xdd, 0x60, 0x67, 0xa6, 0x9e,
	0x6a, 0xdf, 0x41, 0xb1, 0x71, 0xc9, 0x54, 0xda, 0xf1, 0xb6, 0xac, 0xeb,
	0x3e, 0x12, 0x3c, 0xa8, 0x6c, 0xcb, 0x75, 0xfc, 0xda, 0xe5, 0x69, 0xbf,
	0xb1, 0x61, 0x4f, 0x4f, 0xd0, 0x32, 0x21, 0xf8, 0x52, 0x27, 0x1c, 0x59,
	0x69, 0xbe, 0x3e, 0xb3, 0xf3, 0x16, 0x41, 0xbc, 0xaf, 0x3a, 0x6f, 0x15,
	0x05, 0xdb, 0x02, 0x40, 0x5a, 0x18, 0xe9, 0xa0, 0x1b, 0xbb, 0xb5, 0x04,
	0xbc, 0x6e, 0x13, 0xe4, 0x63, 0xe9, 0x18, 0x0a, 0x9f, 0xbf, 0xd5, 0xc1,
	0x15, 0x3e, 0x1c, 0x09, 0x81, 0xc9, 0x32, 0x45, 0x4d, 0xe1, 0x11, 0x12,
	0xd3, 0xcd, 0x71, 0x10, 0x03, 0xfe, 0x2b, 0x7e, 0x32, 0x46, 0x11, 0x2c,
	0x34, 0x6c, 0x58, 0x3b, 0xf1, 0x4b, 0xa2, 0x0c, 0x60, 0x78, 0xa1, 0x64,
	0x9d, 0x43, 0xdf, 0xc0, 0x8b, 0x8a, 0x64, 0x5d, 0x02, 0x41, 0x00, 0xd3,
	0x42, 0xde, 0x11, 0x6f, 0x9a, 0xdf, 0x26, 0x49, 0xe7, 0x8e, 0x6b, 0xad,
	0x79, 0xe7, 0x63, 0x61, 0x53, 0x0c, 0x5f, 0x93, 0x4d, 0xa1, 0xd8, 0xae,
	0x37, 0xe6, 0x20, 0x78, 0x30, 0xc7, 0x37, 0x9b, 0x82, 0xa6, 0x46, 0x6d,
	0x58, 0x9c, 0x7c, 0xea, 0x1f, 0x68, 0x35, 0x0c, 0x6a, 0x72, 0x17, 0xb9,
	0x17, 0x79, 0x56, 0x24, 0xac, 0xf2, 0x76, 0x71, 0xe7, 0x04, 0x05, 0xd2,
	0x69, 0x4b, 0xe9, 0x02, 0x41, 0x00, 0x83, 0x7b, 0x91, 0x02, 0x66, 0xa0,
	0x81, 0xa9, 0xbd, 0xba, 0xa2, 0x86, 0x3d, 0x2b, 0x03, 0x61, 0xe8, 0x8f,
	0x05, 0x12, 0xe3, 0x33, 0xaf, 0x6c, 0x9d, 0xfd, 0x22, 0xbf, 0xc5, 0xc0,
	0x3b, 0xd3, 0x69, 0x45, 0x37, 0xaf, 0x3d, 0xc5, 0xfe, 0x91, 0x14, 0x73,
	0x5c, 0x8e, 0xec, 0xee, 0xa3, 0x1b, 0x90, 0xb7, 0x23, 0x43, 0xc3, 0x5d,
	0x7e, 0xf8, 0xbe, 0xdb, 0x3e, 0x62, 0x1a, 0x17, 0xe9, 0xbf, 0x00, 0x00,
}

// fixtureCredentials is the encrypted credentials followed by the
// service signature, as sent by the cloud for fixtureNonce.
var fixtureCredentials = []byte{
	0x0b, 0xad, 0x19, 0x22, 0xb6, 0x60, 0xf4, 0xc7, 0xb4, 0xea, 0x34, 0xd9,
	0xbf, 0xbb, 0x31, 0xdc, 0x1a, 0x60, 0x99, 0xd8, 0x57, 0xf5, 0x4a, 0x88,
	0xc7, 0x5c, 0x61, 0x2f, 0x91, 0x59, 0xe9, 0xe6, 0x9e, 0x6b, 0x1f, 0x86,
	0xcf, 0x83, 0xe3, 0xe5, 0xe7, 0x8f, 0x7b, 0x89, 0x12, 0x63, 0xec, 0xa2,
	0x85, 0xa7, 0x87, 0x11, 0x41, 0xc2, 0xe0, 0xa1, 0x5c, 0x4f, 0xd3, 0x1d,
	0x23, 0xdd, 0x19, 0xf5, 0x38, 0xb0, 0x6c, 0x4b, 0x70, 0xe4, 0x26, 0x31,
	0xe6, 0x16, 0x81, 0x2a, 0x82, 0x80, 0xa6, 0xe0, 0x78, 0x3e, 0xe3, 0xde,
	0xb2, 0x29, 0x0f, 0x81, 0x72, 0x48, 0x27, 0x6e, 0x48, 0x01, 0x13, 0xed,
	0xff, 0x09, 0x8d, 0xfc, 0xbb, 0xa2, 0x46, 0x5c, 0xb2, 0x07, 0xdc, 0x8d,
	0x58, 0x36, 0x8b, 0xa8, 0x21, 0xa6, 0x5d, 0xac, 0x6e, 0x6e, 0xf0, 0x8e,
	0x39, 0x5a, 0xd3, 0x71, 0x65, 0x92, 0x6b, 0xf0, 0x9e, 0x27, 0x75, 0x13,
	0x79, 0xa7, 0xcd, 0xad, 0x74, 0xf8, 0xaf, 0xa4, 0x4d, 0xda, 0x11, 0x1d,
	0x0a, 0x8f, 0xe7, 0x7b, 0xfc, 0xb7, 0x1a, 0x45, 0x45, 0x88, 0x01, 0x7e,
	0x86, 0x03, 0x3d, 0x75, 0xe2, 0x37, 0x9c, 0x3d, 0x26, 0x51, 0x59, 0x3f,
	0x73, 0xf7, 0x36, 0x44, 0xd1, 0xb7, 0x6c, 0x59, 0x72, 0x0e, 0xe9, 0x42,
	0x10, 0x48, 0xe0, 0xa0, 0xb5, 0x3f, 0x11, 0x35, 0xd2, 0x5c, 0x6f, 0x55,
	0x98, 0x13, 0xaf, 0xef, 0x0c, 0xfe, 0x2d, 0x36, 0xb9, 0x63, 0x20, 0xd7,
	0x69, 0x81, 0xe8, 0xab, 0x2e, 0x78, 0x0a, 0xfd, 0x27, 0x5b, 0x4e, 0xc9,
	0x1f, 0x1a, 0xc1, 0xfb, 0x06, 0x86, 0x8e, 0x63, 0xa3, 0xe5, 0xdc, 0x97,
	0x05, 0x09, 0x16, 0x5a, 0xd2, 0x54, 0x1c, 0xa0, 0x16, 0x67, 0x53, 0x4c,
	0xfb, 0x30, 0x6a, 0xb6, 0x85, 0x4e, 0x96, 0x11, 0xcf, 0xa1, 0xc4, 0x85,
	0x4f, 0x1b, 0xb5, 0xd6, 0x8a, 0x91, 0xea, 0x26, 0xd1, 0xa7, 0xd0, 0x25,
	0x58, 0x93, 0x05, 0x93, 0x2b, 0xec, 0x93, 0xd2, 0xcd, 0x96, 0x3d, 0x03,
	0xf4, 0xeb, 0x80, 0x9e, 0x17, 0x3e, 0x64, 0xb2, 0xa1, 0xa8, 0x95, 0xb8,
	0xe5, 0xb0, 0xc9, 0xd8, 0x39, 0xda, 0x18, 0x32, 0xc1, 0xc7, 0xf8, 0x85,
	0x62, 0xba, 0x8f, 0x2e, 0x45, 0xa2, 0x41, 0x31, 0x2f, 0x26, 0x44, 0x5b,
	0xa6, 0xa4, 0x4d, 0x70, 0xcd, 0xc0, 0xfb, 0x8b, 0x68, 0x6a, 0xba, 0x0e,
	0xe0, 0xd5, 0xf4, 0x28, 0x31, 0x6c, 0xc7, 0xe5, 0x40, 0x30, 0x6a, 0xc1,
	0xee, 0x2f, 0x3f, 0xa6, 0x74, 0x81, 0x3d, 0xa1, 0xdc, 0xba, 0x34, 0xe4,
	0xc7, 0x44, 0x58, 0x3f, 0x0c, 0x99, 0xd0, 0xcd, 0xc0, 0xc0, 0x4a, 0x9f,
	0x10, 0x95, 0x50, 0x49, 0x09, 0xce, 0x09, 0xe2, 0xf7, 0xbd, 0x88, 0x2e,
	0xae, 0x86, 0xcd, 0x19, 0x1e, 0xac, 0x3a, 0x0e, 0xb2, 0x29, 0x1b, 0x6b,
}
