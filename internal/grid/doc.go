// Package grid — внешние коллабораторы предметной области:
// загрузка сетевой модели, применение модификаций и вычислительный
// движок. Core обращается к ним только через узкие интерфейсы;
// HTTP-клиенты здесь — реализации по умолчанию для worker'а.
package grid
