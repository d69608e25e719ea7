// Package results — реестр провайдеров хранения результатов по ResultKind.
//
// Шаг RUN_COMPUTATION оставляет после себя пару (result id, kind);
// чтение и удаление payload'а выполняет провайдер, зарегистрированный
// для этого kind. Провайдер по умолчанию — S3-совместимое объектное
// хранилище.
package results
