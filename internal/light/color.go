// Package light описывает упакованный RGB-уровень освещённости вершины.
//
// Раскладка битов Color (uint32):
//
//	биты  0..9  - красный канал
//	биты 10..19 - зелёный канал
//	биты 20..29 - синий канал
//	биты 30..31 - не используются
//
// Значение канала 0..1023 соответствует яркости 0..2, нейтральный уровень - 511.
package light

const (
	channelBits = 10
	channelMask = 1<<channelBits - 1

	shiftR = 0
	shiftG = channelBits
	shiftB = channelBits * 2

	// MaxChannel - максимальное значение канала
	MaxChannel = channelMask
	// NeutralChannel соответствует яркости 1.0
	NeutralChannel = 511
)

// Color - упакованный RGB-уровень (10 бит на канал)
type Color uint32

// Channel - индекс канала
type Channel uint8

const (
	Red Channel = iota
	Green
	Blue
)

// Neutral - нейтральное освещение (1.0 по всем каналам)
const Neutral = Color(NeutralChannel<<shiftR | NeutralChannel<<shiftG | NeutralChannel<<shiftB)

// None - отсутствие вклада
const None = Color(0)

// FromChannels упаковывает значения каналов, обрезая их до MaxChannel
func FromChannels(r, g, b int) Color {
	return Color(clampChannel(r)<<shiftR | clampChannel(g)<<shiftG | clampChannel(b)<<shiftB)
}

// FromFloat упаковывает яркости 0..2
func FromFloat(r, g, b float32) Color {
	return FromChannels(toChannel(r), toChannel(g), toChannel(b))
}

// Get возвращает значение канала
func (c Color) Get(ch Channel) int {
	return int(uint32(c)>>(uint(ch)*channelBits)) & channelMask
}

// R возвращает красный канал
func (c Color) R() int { return c.Get(Red) }

// G возвращает зелёный канал
func (c Color) G() int { return c.Get(Green) }

// B возвращает синий канал
func (c Color) B() int { return c.Get(Blue) }

// Float возвращает яркость канала в диапазоне 0..2
func (c Color) Float(ch Channel) float32 {
	return float32(c.Get(ch)) / NeutralChannel
}

// Scale умножает все каналы на коэффициент
func (c Color) Scale(f float32) Color {
	return FromChannels(
		int(float32(c.R())*f+0.5),
		int(float32(c.G())*f+0.5),
		int(float32(c.B())*f+0.5),
	)
}

// Add складывает каналы с насыщением
func (c Color) Add(o Color) Color {
	return FromChannels(c.R()+o.R(), c.G()+o.G(), c.B()+o.B())
}

// Max возвращает поканальный максимум. Повторное применение того же цвета ничего не меняет.
func (c Color) Max(o Color) Color {
	return FromChannels(maxInt(c.R(), o.R()), maxInt(c.G(), o.G()), maxInt(c.B(), o.B()))
}

func toChannel(v float32) int {
	return int(v*NeutralChannel + 0.5)
}

func clampChannel(v int) uint32 {
	if v < 0 {
		return 0
	}
	if v > MaxChannel {
		return MaxChannel
	}
	return uint32(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
