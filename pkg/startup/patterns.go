package startup

import "github.com/oisee/dcc16/pkg/sig"

// wild is a local alias for the pattern sentinel, kept short because
// the template tables below are dense and read better without the
// package qualifier on every line.
const wild = sig.Wild

// Vendor start-of-image anchor patterns, ported byte-for-byte from the
// reference implementation's chklib.c pattern tables.

var pattMsC5Start = []byte{
	0xB4, 0x30, // mov ah, 30
	0xCD, 0x21, // int 21 (dos version number)
	0x3C, 0x02, // cmp al, 2
	0x73, 0x02, // jnb $+4
	0xCD, 0x20, // int 20 (exit)
	0xBF, // mov di, dseg
}

var pattMsC8Start = []byte{
	0xB4, 0x30,
	0xCD, 0x21,
	0x3C, 0x02,
	0x73, 0x05,
	0x33, 0xC0, // xor ax, ax
	0x06, 0x50, // push es:ax
	0xCB, // retf
	0xBF, // mov di, dseg
}

var pattMsC8ComStart = []byte{
	0xB4, 0x30,
	0xCD, 0x21,
	0x3C, 0x02,
	0x73, 0x01,
	0xC3, // ret
	0x8C, 0xDF, // mov di, ds
}

var pattBorl2Start = []byte{
	0xBA, wild, wild, // mov dx, dseg
	0x2E, 0x89, 0x16, // mov cs:[], dx
	wild, wild, 0xB4, 0x30, // mov ah, 30
	0xCD, 0x21, // int 21
	0x8B, 0x2E, 0x02, 0, // mov bp, [2]
	0x8B, 0x1E, 0x2C, 0, // mov bx, [2C]
	0x8E, 0xDA, // mov ds, dx
	0xA3, wild, wild, // mov [xx], ax
	0x8C, 0x06, wild, wild, // mov [xx], es
	0x89, 0x1E, wild, wild, // mov [xx], bx
	0x89, 0x2E, wild, wild, // mov [xx], bp
	0xC7, // mov [xx], -1
}

var pattBorl3Start = []byte{
	0xBA, wild, wild,
	0x2E, 0x89, 0x16,
	wild, wild, 0xB4, 0x30,
	0xCD, 0x21,
	0x8B, 0x2E, 0x02, 0,
	0x8B, 0x1E, 0x2C, 0,
	0x8E, 0xDA,
	0xA3, wild, wild,
	0x8C, 0x06, wild, wild,
	0x89, 0x1E, wild, wild,
	0x89, 0x2E, wild, wild,
	0xE8, // call ...
}

var pattBorl4on = []byte{
	0x9A, 0, 0, wild, wild, // call init (offset always 0)
}

var pattBorl4Init = []byte{
	0xBA, wild, wild, // mov dx, dseg
	0x8E, 0xDA, // mov ds, dx
	0x8C, 0x06, wild, wild, // mov [xx], es
	0x8B, 0xC4, // mov ax, sp
	0x05, 0x13, 0, // add ax, 13h
	0xB1, 0x04, // mov cl, 4
	0xD3, 0xE8, // shr ax, cl
	0x8C, 0xD2, // mov dx, ss
}

var pattBorl5Init = []byte{
	0xBA, wild, wild,
	0x8E, 0xDA,
	0x8C, 0x06, 0x30, 0, // mov [0030], es
	0x33, 0xED, // xor bp, bp
	0x8B, 0xC4,
	0x05, 0x13, 0,
	0xB1, 0x04,
	0xD3, 0xE8,
	0x8C, 0xD2,
}

var pattBorl7Init = []byte{
	0xBA, wild, wild,
	0x8E, 0xDA,
	0x8C, 0x06, 0x30, 0,
	0xE8, wild, wild, // call xxxx
	0xE8, wild, wild, // call xxxx
	0x8B, 0xC4,
	0x05, 0x13, 0,
	0xB1, 0x04,
	0xD3, 0xE8,
	0x8C, 0xD2,
}

var pattLogiStart = []byte{
	0xEB, 0x04, // jmp short $+6
	wild, wild,
	wild, wild,
	0xB8, wild, wild, // mov ax, dseg
	0x8E, 0xD8, // mov ds, ax
}

var pattTPasStart = []byte{
	0xE9, 0x79, 0x2C, // jmp 2D7C - Turbo Pascal 3.0
}

// Main-call (memory model) templates.

var pattMainSmall = []byte{
	0xFF, 0x36, wild, wild, // push environment pointer
	0xFF, 0x36, wild, wild, // push argv
	0xFF, 0x36, wild, wild, // push argc
	0xE8, wild, wild, // call _main
	0x50, // push ax
	0xE8, // call _exit
}

var pattMainMedium = []byte{
	0xFF, 0x36, wild, wild,
	0xFF, 0x36, wild, wild,
	0xFF, 0x36, wild, wild,
	0x9A, wild, wild, wild, wild, // call far _main
	0x50,
}

var pattMainCompact = []byte{
	0xFF, 0x36, wild, wild, // push environment pointer lo
	0xFF, 0x36, wild, wild, // push environment pointer hi
	0xFF, 0x36, wild, wild, // push argv lo
	0xFF, 0x36, wild, wild, // push argv hi
	0xFF, 0x36, wild, wild, // push argc
	0xE8, wild, wild,
	0x50,
	0xE8,
}

var pattMainLarge = []byte{
	0xFF, 0x36, wild, wild,
	0xFF, 0x36, wild, wild,
	0xFF, 0x36, wild, wild,
	0xFF, 0x36, wild, wild,
	0xFF, 0x36, wild, wild,
	0x9A, wild, wild, wild, wild,
	0x50,
}

// Byte offsets from the start of a matched main-call template to the
// relative/absolute address field of main(), per §4.3.
const (
	offMainSmall   = 13
	offMainMedium  = 13
	offMainCompact = 21
	offMainLarge   = 21
)
