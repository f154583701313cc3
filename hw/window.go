package hw

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/veandco/go-sdl2/sdl"
)

// VideoConfig configures the emulator window.
type VideoConfig struct {
	Scale        int    `toml:"scale"`
	DisableVSync bool   `toml:"disable_vsync"`
	CRT          bool   `toml:"crt"`
	Title        string `toml:"-"`
}

// Video is an OpenGL window blitting the VGA framebuffer onto a full
// screen textured quad once per host frame.
type Video struct {
	win     *sdl.Window
	context sdl.GLContext
	prog    uint32
	texture uint32
	vao     uint32
}

// NewVideo opens the emulator window. Must be called from within
// sdl.Main.
func NewVideo(cfg VideoConfig) (*Video, error) {
	type result struct {
		v   *Video
		err error
	}
	resc := make(chan result, 1)
	sdl.Do(func() {
		v, err := newVideo(cfg)
		resc <- result{v, err}
	})
	res := <-resc
	return res.v, res.err
}

func newVideo(cfg VideoConfig) (*Video, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL: %s", err)
	}

	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 3)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 3)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)

	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}
	win, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(VGAWidth*scale), int32(VGAHeight*scale),
		sdl.WINDOW_OPENGL|sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %s", err)
	}

	context, err := win.GLCreateContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenGL context: %s", err)
	}
	if cfg.DisableVSync {
		sdl.GLSetSwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize opengl: %s", err)
	}

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	blank := make([]byte, VGAWidth*VGAHeight*4)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, VGAWidth, VGAHeight, 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&blank[0]))

	fragSrc := fragmentShaderSource
	if cfg.CRT {
		fragSrc = crtFragmentShaderSource
	}
	vert, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader compilation: %s", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader compilation: %s", err)
	}
	prog, err := linkProgram(vert, frag)
	if err != nil {
		return nil, fmt.Errorf("shader program link: %s", err)
	}

	var vbo, vao, ebo uint32
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)
	gl.GenBuffers(1, &ebo)

	gl.BindVertexArray(vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(quadIndices)*4, gl.Ptr(quadIndices), gl.STATIC_DRAW)

	// Position attributes.
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 5*4, 0)
	gl.EnableVertexAttribArray(0)

	// Texture coordinate attributes.
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 5*4, 3*4)
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	return &Video{
		win:     win,
		context: context,
		prog:    prog,
		texture: texture,
		vao:     vao,
	}, nil
}

// Render uploads the RGBA framebuffer and presents it.
func (v *Video) Render(pixels []byte) {
	sdl.Do(func() {
		gl.BindTexture(gl.TEXTURE_2D, v.texture)
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, VGAWidth, VGAHeight,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))

		w, h := v.win.GLGetDrawableSize()
		gl.Viewport(0, 0, w, h)
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		gl.UseProgram(v.prog)
		gl.BindVertexArray(v.vao)
		gl.DrawElements(gl.TRIANGLES, 6, gl.UNSIGNED_INT, nil)

		v.win.GLSwap()
	})
}

// WindowEvents is what Poll distilled from the SDL event queue.
type WindowEvents struct {
	Quit        bool
	DroppedFile string
	Pressed     []sdl.Keycode
}

// Poll drains pending window events.
func (v *Video) Poll() WindowEvents {
	var evts WindowEvents
	sdl.Do(func() {
		for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
			switch ev := ev.(type) {
			case *sdl.QuitEvent:
				evts.Quit = true
			case *sdl.DropEvent:
				if ev.Type == sdl.DROPFILE {
					evts.DroppedFile = ev.File
				}
			case *sdl.KeyboardEvent:
				if ev.Type == sdl.KEYDOWN && ev.Repeat == 0 {
					evts.Pressed = append(evts.Pressed, ev.Keysym.Sym)
				}
			}
		}
	})
	return evts
}

// SetTitle updates the window title.
func (v *Video) SetTitle(title string) {
	sdl.Do(func() { v.win.SetTitle(title) })
}

func (v *Video) Close() error {
	errc := make(chan error, 1)
	sdl.Do(func() {
		if v.context != nil {
			sdl.GLDeleteContext(v.context)
		}
		err := v.win.Destroy()
		sdl.Quit()
		errc <- err
	})
	return <-errc
}

// Columns are position and texture coordinates.
// Rows are the quad vertices in clockwise order.
var quadVertices = []float32{
	// x, y, z, s, t
	1.0, 1.0, 0, 1, 0, // top right
	1.0, -1.0, 0, 1, 1, // bottom right
	-1.0, -1.0, 0, 0, 1, // bottom left
	-1.0, 1.0, 0, 0, 0, // top left
}

var quadIndices = []uint32{
	0, 1, 3,
	1, 2, 3,
}

const vertexShaderSource = `
#version 330 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aTexCoord;

out vec2 TexCoord;

void main() {
    gl_Position = vec4(aPos, 1.0);
    TexCoord = aTexCoord;
}
` + "\x00"

const fragmentShaderSource = `
#version 330 core
out vec4 FragColor;
in vec2 TexCoord;

uniform sampler2D screen;

void main() {
    FragColor = texture(screen, TexCoord);
}
` + "\x00"

const crtFragmentShaderSource = `
#version 330 core
out vec4 FragColor;
in vec2 TexCoord;

uniform sampler2D screen;

void main() {
    vec3 color = texture(screen, TexCoord).rgb;
    float scanline = sin(TexCoord.y * 960.0) * 0.05;
    float vignette = 0.3 + 0.7 * pow(16.0 * TexCoord.x * TexCoord.y * (1.0 - TexCoord.x) * (1.0 - TexCoord.y), 0.5);
    color = color * vignette - scanline;
    FragColor = vec4(color, 1.0);
}
` + "\x00"

func compileShader(source string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(source)
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	if gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status); status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLength)

		infolog := make([]byte, logLength+1)
		gl.GetShaderInfoLog(sh, logLength, nil, &infolog[0])

		return 0, fmt.Errorf("shader compile error: %v", string(infolog))
	}
	return sh, nil
}

func linkProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	prg := gl.CreateProgram()
	gl.AttachShader(prg, vertexShader)
	gl.AttachShader(prg, fragmentShader)
	gl.LinkProgram(prg)

	var status int32
	if gl.GetProgramiv(prg, gl.LINK_STATUS, &status); status == gl.FALSE {
		var logLength int32
		var infolog [256]byte
		gl.GetProgramInfoLog(prg, int32(len(infolog)), &logLength, &infolog[0])
		return 0, fmt.Errorf("shader program link error: %v", string(infolog[:logLength]))
	}

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return prg, nil
}
